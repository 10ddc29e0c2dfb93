//go:build linux

package reactor

import (
	"os"
	"time"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

// Poller owns an epoll instance and the table of channels registered with
// it. Only the reactor goroutine may call its methods.
type Poller struct {
	epfd     int
	events   []unix.EpollEvent
	ready    []*Channel
	channels map[int]*Channel
	logger   *logiface.Logger[logiface.Event]

	ctl  func(epfd int, op int, fd int, event *unix.EpollEvent) error
	wait func(epfd int, events []unix.EpollEvent, msec int) (int, error)
}

func NewPoller(maxEvents int, logger *logiface.Logger[logiface.Event]) (*Poller, error) {
	if maxEvents <= 0 {
		maxEvents = DEFAULT_EPOLL_EVENTS
	}
	var epfd, err = unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &Poller{
		epfd:     epfd,
		events:   make([]unix.EpollEvent, maxEvents),
		ready:    make([]*Channel, 0, maxEvents),
		channels: make(map[int]*Channel),
		logger:   logger,
		ctl:      unix.EpollCtl,
		wait:     unix.EpollWait,
	}, nil
}

// Register adds ch with its current interest mask. A descriptor that is
// already registered is left untouched.
func (p *Poller) Register(ch *Channel) error {
	if _, ok := p.channels[ch.fd]; ok {
		return ErrFDAlreadyRegistered
	}
	var event = unix.EpollEvent{Events: uint32(ch.events), Fd: int32(ch.fd)}
	if err := p.ctl(p.epfd, unix.EPOLL_CTL_ADD, ch.fd, &event); err != nil {
		return os.NewSyscallError("epoll_ctl_add", err)
	}
	ch.installed = ch.events
	ch.registered = true
	p.channels[ch.fd] = ch
	return nil
}

// Modify installs the channel's current interest mask. Nothing reaches the
// kernel when the mask is unchanged and not one-shot. If the kernel rejects
// the change, the channel is evicted and the error is also delivered to its
// error handler.
func (p *Poller) Modify(ch *Channel) error {
	if !p.Owns(ch) {
		return ErrFDNotRegistered
	}
	if !ch.needsUpdate() {
		return nil
	}
	var event = unix.EpollEvent{Events: uint32(ch.events), Fd: int32(ch.fd)}
	if err := p.ctl(p.epfd, unix.EPOLL_CTL_MOD, ch.fd, &event); err != nil {
		err = os.NewSyscallError("epoll_ctl_mod", err)
		p.logger.Warning().
			Int("fd", ch.fd).
			Err(err).
			Log("evicting channel after failed modify")
		p.evict(ch)
		ch.handleError(err)
		return err
	}
	ch.installed = ch.events
	return nil
}

// Unregister removes ch. The table entry is dropped even when the kernel
// call fails.
func (p *Poller) Unregister(ch *Channel) error {
	if !p.Owns(ch) {
		return ErrFDNotRegistered
	}
	p.evict(ch)
	var event = unix.EpollEvent{Events: uint32(ch.installed), Fd: int32(ch.fd)}
	if err := p.ctl(p.epfd, unix.EPOLL_CTL_DEL, ch.fd, &event); err != nil {
		return os.NewSyscallError("epoll_ctl_del", err)
	}
	return nil
}

// Owns reports whether ch is the channel currently registered for its fd.
func (p *Poller) Owns(ch *Channel) bool {
	var cur, ok = p.channels[ch.fd]
	return ok && cur == ch
}

func (p *Poller) Len() int {
	return len(p.channels)
}

// Poll waits up to timeoutMs milliseconds, forever when negative, for at
// least one registered channel to become ready. Interrupted waits resume
// with whatever remains of the budget. The returned slice is reused by the
// next call.
func (p *Poller) Poll(timeoutMs int) ([]*Channel, error) {
	var deadline time.Time
	if timeoutMs > 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}
	for {
		var n, err = p.wait(p.epfd, p.events, timeoutMs)
		if err != nil {
			if err != unix.EINTR {
				return nil, os.NewSyscallError("epoll_wait", err)
			}
			n = 0
		}
		p.ready = p.ready[:0]
		for i := 0; i < n; i++ {
			var ch, ok = p.channels[int(p.events[i].Fd)]
			if !ok {
				continue
			}
			ch.revents = Interest(p.events[i].Events)
			p.ready = append(p.ready, ch)
		}
		if len(p.ready) > 0 {
			return p.ready, nil
		}
		if timeoutMs == 0 {
			return nil, nil
		}
		if timeoutMs > 0 {
			var remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil, nil
			}
			timeoutMs = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}
	}
}

func (p *Poller) Close() error {
	clear(p.channels)
	if err := unix.Close(p.epfd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

func (p *Poller) evict(ch *Channel) {
	delete(p.channels, ch.fd)
	ch.registered = false
}
