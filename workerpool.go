package reactor

import (
	"runtime"
	"sync"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

// WorkerPool runs closures on a fixed set of goroutines fed from a shared
// FIFO queue.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   *queue.Queue
	closing bool
	size    int
	wg      sync.WaitGroup
	logger  *logiface.Logger[logiface.Event]
}

// NewWorkerPool starts n workers, or GOMAXPROCS workers when n <= 0.
func NewWorkerPool(n int, logger *logiface.Logger[logiface.Event]) *WorkerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	var p = &WorkerPool{
		tasks:  queue.New(),
		size:   n,
		logger: logger,
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	return p
}

// Append queues task and wakes one idle worker. It returns false once the
// pool is closing.
func (p *WorkerPool) Append(task func()) bool {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return false
	}
	p.tasks.Add(task)
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// Close stops accepting tasks, lets the workers finish what is already
// queued, and returns once every worker has exited. It must not be called
// from a task.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *WorkerPool) Size() int {
	return p.size
}

// Pending returns the number of queued tasks no worker has picked up yet.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasks.Length()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	p.mu.Lock()
	for {
		for p.tasks.Length() == 0 && !p.closing {
			p.cond.Wait()
		}
		if p.tasks.Length() == 0 {
			break
		}
		var task = p.tasks.Remove().(func())
		p.mu.Unlock()
		p.run(id, task)
		p.mu.Lock()
	}
	p.mu.Unlock()
}

func (p *WorkerPool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Err().
				Str("component", "workerpool").
				Int("worker", id).
				Any("panic", r).
				Log("task panicked")
		}
	}()
	task()
}
