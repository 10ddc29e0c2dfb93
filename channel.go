//go:build linux

package reactor

import (
	"os"

	"golang.org/x/sys/unix"
)

// Interest is an epoll event mask.
type Interest uint32

const (
	EventRead       Interest = unix.EPOLLIN
	EventPri        Interest = unix.EPOLLPRI
	EventWrite      Interest = unix.EPOLLOUT
	EventError      Interest = unix.EPOLLERR
	EventHangup     Interest = unix.EPOLLHUP
	EventPeerClosed Interest = unix.EPOLLRDHUP
	EventOneShot    Interest = unix.EPOLLONESHOT
	EventEdge       Interest = unix.EPOLLET
)

// Channel binds a descriptor to the interest mask the reactor should
// install for it and to the callbacks that handle its readiness.
type Channel struct {
	fd         int
	events     Interest
	installed  Interest
	revents    Interest
	registered bool

	onAccept func()
	onRead   func()
	onWrite  func()
	onError  func(err error)
	onClose  func()
}

func NewChannel(fd int) *Channel {
	return &Channel{fd: fd}
}

func (ch *Channel) Fd() int {
	return ch.fd
}

// SetInterest sets the desired mask. It takes effect on the next Register
// or Modify.
func (ch *Channel) SetInterest(events Interest) {
	ch.events = events
}

func (ch *Channel) Interest() Interest {
	return ch.events
}

// Installed returns the mask the poller was last told about.
func (ch *Channel) Installed() Interest {
	return ch.installed
}

// Revents returns the events observed by the most recent poll.
func (ch *Channel) Revents() Interest {
	return ch.revents
}

func (ch *Channel) SetAcceptHandler(fn func()) {
	ch.onAccept = fn
}

func (ch *Channel) SetReadHandler(fn func()) {
	ch.onRead = fn
}

func (ch *Channel) SetWriteHandler(fn func()) {
	ch.onWrite = fn
}

func (ch *Channel) SetErrorHandler(fn func(err error)) {
	ch.onError = fn
}

func (ch *Channel) SetCloseHandler(fn func()) {
	ch.onClose = fn
}

// needsUpdate reports whether a modify call must reach the kernel. A
// one-shot mask is disarmed after every event, so it always needs one.
func (ch *Channel) needsUpdate() bool {
	return ch.events != ch.installed || ch.events&EventOneShot != 0
}

// HandleEvents dispatches the observed events. Hangup wins over everything,
// then error, then read, then write. A handler that unregisters the channel
// stops any further dispatch for this batch.
func (ch *Channel) HandleEvents() {
	var ev = ch.revents
	if ev&(EventHangup|EventPeerClosed) != 0 {
		if ch.onClose != nil {
			ch.onClose()
		}
		return
	}
	if ev&EventError != 0 {
		ch.handleError(socketError(ch.fd))
		return
	}
	if ev&(EventRead|EventPri) != 0 {
		if ch.onRead != nil {
			ch.onRead()
		} else if ch.onAccept != nil {
			ch.onAccept()
		}
		if !ch.registered {
			return
		}
	}
	if ev&EventWrite != 0 && ch.onWrite != nil {
		ch.onWrite()
	}
}

func (ch *Channel) handleError(err error) {
	if ch.onError != nil {
		ch.onError(err)
	}
}

func socketError(fd int) error {
	var v, err = unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if v != 0 {
		return os.NewSyscallError("so_error", unix.Errno(v))
	}
	return ErrChannelError
}
