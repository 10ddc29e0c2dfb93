//go:build linux

package reactor

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Reactor runs a single event loop over a Poller. Descriptor registration
// and timers belong to the loop goroutine; other goroutines reach it through
// Post. Protocol work is handed to the worker pool with Submit.
type Reactor struct {
	poller  *Poller
	waker   *waker
	pending *pendingQueue
	pool    *WorkerPool
	timers  *TimerHeap
	logger  *logiface.Logger[logiface.Event]

	pollTimeoutMs int
	state         atomic.Int32
	loopID        atomic.Uint64
	iterations    atomic.Uint64
	done          chan struct{}
	closeOnce     sync.Once
	closeErr      error
}

func NewReactor(opts ...Option) (*Reactor, error) {
	var o = resolveOptions(opts)
	var poller, err = NewPoller(o.maxEvents, o.logger)
	if err != nil {
		return nil, err
	}
	var w *waker
	if w, err = newWaker(); err != nil {
		_ = poller.Close()
		return nil, err
	}
	if err = poller.Register(w.ch); err != nil {
		_ = w.close()
		_ = poller.Close()
		return nil, err
	}
	var r = &Reactor{
		poller:        poller,
		waker:         w,
		pending:       newPendingQueue(w),
		timers:        NewTimerHeap(o.clock),
		logger:        o.logger,
		pollTimeoutMs: o.pollTimeoutMs,
		done:          make(chan struct{}),
	}
	r.pool = NewWorkerPool(o.workers, o.logger)
	return r, nil
}

// Loop runs the event loop on the calling goroutine until Quit is called or
// polling fails. Each iteration fires due timers, polls, runs pending tasks,
// and then dispatches the ready channels.
func (r *Reactor) Loop() error {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateLooping)) {
		if r.State() == StateLooping {
			return ErrLoopAlreadyRunning
		}
		return ErrLoopTerminated
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	r.loopID.Store(goroutineID())
	defer close(r.done)

	r.logger.Debug().
		Str("component", "reactor").
		Int("workers", r.pool.Size()).
		Log("loop started")

	var err error
	for r.State() == StateLooping {
		if err = r.runOnce(); err != nil {
			r.logger.Err().
				Str("component", "reactor").
				Err(err).
				Log("poll failed, stopping loop")
			break
		}
	}

	for _, task := range r.pending.close() {
		task()
	}
	r.loopID.Store(0)
	r.state.Store(int32(StateStopped))

	r.logger.Debug().
		Str("component", "reactor").
		Uint64("iterations", r.iterations.Load()).
		Log("loop stopped")
	return err
}

func (r *Reactor) runOnce() error {
	r.timers.PopExpiredAndFire()
	var ready, err = r.poller.Poll(r.pollTimeout())
	if err != nil {
		return err
	}
	r.iterations.Add(1)
	r.pending.drain()
	for _, ch := range ready {
		if !r.poller.Owns(ch) {
			continue
		}
		ch.HandleEvents()
	}
	return nil
}

func (r *Reactor) pollTimeout() int {
	var timeout = r.pollTimeoutMs
	if next := r.timers.NextExpiryMs(); next >= 0 && (timeout < 0 || next < timeout) {
		timeout = next
	}
	return timeout
}

// Quit asks the loop to stop after the current iteration. Calling it on a
// reactor that never looped marks it stopped.
func (r *Reactor) Quit() {
	for {
		switch r.State() {
		case StateIdle:
			if r.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
				r.pending.close()
				close(r.done)
				return
			}
		case StateLooping:
			if r.state.CompareAndSwap(int32(StateLooping), int32(StateStopping)) {
				if err := r.waker.wake(); err != nil {
					r.logger.Warning().
						Str("component", "reactor").
						Err(err).
						Log("wake on quit failed")
				}
				return
			}
		default:
			return
		}
	}
}

// Close stops the loop, waits for it to return, then shuts the worker pool
// down and releases the poller and waker descriptors.
func (r *Reactor) Close() error {
	if r.InLoop() {
		return ErrCloseInLoop
	}
	r.Quit()
	<-r.done
	r.closeOnce.Do(func() {
		r.pool.Close()
		_ = r.poller.Unregister(r.waker.ch)
		r.closeErr = errors.Join(r.waker.close(), r.poller.Close())
	})
	return r.closeErr
}

// Post queues task to run on the loop goroutine before the next dispatch.
// Tasks posted before the loop starts run on its first iteration.
func (r *Reactor) Post(task func()) error {
	return r.pending.post(task)
}

// Submit hands task to the worker pool. It returns false once the pool is
// closing.
func (r *Reactor) Submit(task func()) bool {
	return r.pool.Append(task)
}

func (r *Reactor) Register(ch *Channel) error {
	if err := r.checkLoop(); err != nil {
		return err
	}
	return r.poller.Register(ch)
}

func (r *Reactor) Modify(ch *Channel) error {
	if err := r.checkLoop(); err != nil {
		return err
	}
	return r.poller.Modify(ch)
}

func (r *Reactor) Unregister(ch *Channel) error {
	if err := r.checkLoop(); err != nil {
		return err
	}
	return r.poller.Unregister(ch)
}

// Owns reports whether ch is currently registered with this reactor.
func (r *Reactor) Owns(ch *Channel) bool {
	return r.poller.Owns(ch)
}

func (r *Reactor) AddTimer(id uint64, timeout time.Duration, cb func()) error {
	if err := r.checkLoop(); err != nil {
		return err
	}
	r.timers.Add(id, timeout, cb)
	return nil
}

// AdjustTimer panics if id is not scheduled.
func (r *Reactor) AdjustTimer(id uint64, timeout time.Duration) error {
	if err := r.checkLoop(); err != nil {
		return err
	}
	r.timers.Adjust(id, timeout)
	return nil
}

// HasTimer reports whether id is scheduled. Like the other timer calls it
// belongs to the loop goroutine while the loop runs.
func (r *Reactor) HasTimer(id uint64) bool {
	return r.timers.Contains(id)
}

func (r *Reactor) CancelTimer(id uint64) error {
	if err := r.checkLoop(); err != nil {
		return err
	}
	r.timers.Disable(id)
	return nil
}

// InLoop reports whether the caller is the goroutine running Loop.
func (r *Reactor) InLoop() bool {
	var id = r.loopID.Load()
	return id != 0 && id == goroutineID()
}

func (r *Reactor) State() State {
	return State(r.state.Load())
}

// Iterations counts completed polls.
func (r *Reactor) Iterations() uint64 {
	return r.iterations.Load()
}

func (r *Reactor) Workers() int {
	return r.pool.Size()
}

// checkLoop rejects callers other than the loop goroutine while the loop
// runs. Before Loop starts and after it returns any goroutine may call.
func (r *Reactor) checkLoop() error {
	var id = r.loopID.Load()
	if id != 0 && id != goroutineID() {
		return ErrNotInLoop
	}
	return nil
}
