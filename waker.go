//go:build linux

package reactor

import (
	"encoding/binary"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// waker is an eventfd registered with the poller so other goroutines can
// interrupt a blocked poll.
type waker struct {
	fd  int
	ch  *Channel
	buf [8]byte
}

func newWaker() (*waker, error) {
	var fd, err = unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, os.NewSyscallError("eventfd", err)
	}
	var w = &waker{fd: fd}
	w.ch = NewChannel(fd)
	w.ch.SetInterest(EventRead)
	// the counter is reset by pendingQueue.drain, ahead of the queue swap
	w.ch.SetReadHandler(func() {})
	return w, nil
}

func (w *waker) wake() error {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	for {
		var _, err = unix.Write(w.fd, b[:])
		switch err {
		case nil, unix.EAGAIN:
			// EAGAIN means the counter is saturated, so a wakeup is already pending.
			return nil
		case unix.EINTR:
			continue
		default:
			return os.NewSyscallError("write", err)
		}
	}
}

func (w *waker) drain() {
	for {
		var _, err = unix.Read(w.fd, w.buf[:])
		if err != unix.EINTR {
			return
		}
	}
}

func (w *waker) close() error {
	if err := unix.Close(w.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

// goroutineID parses the current goroutine id from the stack header.
func goroutineID() uint64 {
	var buf [64]byte
	var n = runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
