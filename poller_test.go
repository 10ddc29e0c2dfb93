//go:build linux

package reactor

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestEventfd(t *testing.T) int {
	t.Helper()
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fd) })
	return fd
}

func signalEventfd(t *testing.T, fd int) {
	t.Helper()
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	_, err := unix.Write(fd, b[:])
	require.NoError(t, err)
}

func newTestPoller(t *testing.T) (*Poller, *[]int) {
	t.Helper()
	p, err := NewPoller(16, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	var ops []int
	ctl := p.ctl
	p.ctl = func(epfd int, op int, fd int, event *unix.EpollEvent) error {
		ops = append(ops, op)
		return ctl(epfd, op, fd, event)
	}
	return p, &ops
}

func TestPoller_modifySkipsUnchangedMask(t *testing.T) {
	p, ops := newTestPoller(t)
	ch := NewChannel(newTestEventfd(t))
	ch.SetInterest(EventRead)
	require.NoError(t, p.Register(ch))

	ch.SetInterest(EventRead | EventWrite)
	require.NoError(t, p.Modify(ch))
	require.NoError(t, p.Modify(ch))

	assert.Equal(t, []int{unix.EPOLL_CTL_ADD, unix.EPOLL_CTL_MOD}, *ops)
	assert.Equal(t, EventRead|EventWrite, ch.Installed())
}

func TestPoller_oneShotAlwaysReachesKernel(t *testing.T) {
	p, ops := newTestPoller(t)
	ch := NewChannel(newTestEventfd(t))
	ch.SetInterest(EventRead | EventOneShot)
	require.NoError(t, p.Register(ch))
	require.NoError(t, p.Modify(ch))
	require.NoError(t, p.Modify(ch))

	assert.Equal(t, []int{unix.EPOLL_CTL_ADD, unix.EPOLL_CTL_MOD, unix.EPOLL_CTL_MOD}, *ops)
}

func TestPoller_registerDuplicateKeepsOriginal(t *testing.T) {
	p, ops := newTestPoller(t)
	fd := newTestEventfd(t)
	first := NewChannel(fd)
	first.SetInterest(EventRead)
	require.NoError(t, p.Register(first))

	second := NewChannel(fd)
	second.SetInterest(EventWrite)
	assert.ErrorIs(t, p.Register(second), ErrFDAlreadyRegistered)
	assert.True(t, p.Owns(first))
	assert.False(t, p.Owns(second))
	assert.Len(t, *ops, 1)
	assert.Equal(t, 1, p.Len())
}

func TestPoller_modifyFailureEvictsAndReportsError(t *testing.T) {
	p, _ := newTestPoller(t)
	ch := NewChannel(newTestEventfd(t))
	ch.SetInterest(EventRead)
	require.NoError(t, p.Register(ch))

	var reported error
	ch.SetErrorHandler(func(err error) { reported = err })
	p.ctl = func(int, int, int, *unix.EpollEvent) error { return unix.EBADF }

	ch.SetInterest(EventWrite)
	err := p.Modify(ch)
	assert.ErrorIs(t, err, unix.EBADF)
	assert.ErrorIs(t, reported, unix.EBADF)
	assert.False(t, p.Owns(ch))
	assert.ErrorIs(t, p.Modify(ch), ErrFDNotRegistered)
}

func TestPoller_unregisterDropsEntryEvenOnFailure(t *testing.T) {
	p, _ := newTestPoller(t)
	ch := NewChannel(newTestEventfd(t))
	ch.SetInterest(EventRead)
	require.NoError(t, p.Register(ch))

	p.ctl = func(int, int, int, *unix.EpollEvent) error { return unix.ENOENT }
	assert.ErrorIs(t, p.Unregister(ch), unix.ENOENT)
	assert.False(t, p.Owns(ch))
	assert.Equal(t, 0, p.Len())
	assert.ErrorIs(t, p.Unregister(ch), ErrFDNotRegistered)
}

func TestPoller_pollReturnsReadyChannels(t *testing.T) {
	p, _ := newTestPoller(t)
	fd := newTestEventfd(t)
	ch := NewChannel(fd)
	ch.SetInterest(EventRead)
	require.NoError(t, p.Register(ch))

	ready, err := p.Poll(0)
	require.NoError(t, err)
	assert.Empty(t, ready)

	signalEventfd(t, fd)
	ready, err = p.Poll(1000)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Same(t, ch, ready[0])
	assert.NotZero(t, ready[0].Revents()&EventRead)
}

func TestPoller_pollHonoursTimeout(t *testing.T) {
	p, _ := newTestPoller(t)
	start := time.Now()
	ready, err := p.Poll(50)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestPoller_pollRetriesInterruptsAndStaleEvents(t *testing.T) {
	p, _ := newTestPoller(t)
	fd := newTestEventfd(t)
	ch := NewChannel(fd)
	ch.SetInterest(EventRead)
	require.NoError(t, p.Register(ch))
	signalEventfd(t, fd)

	var calls int
	wait := p.wait
	p.wait = func(epfd int, events []unix.EpollEvent, msec int) (int, error) {
		calls++
		switch calls {
		case 1:
			return -1, unix.EINTR
		case 2:
			events[0] = unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd + 1000)}
			return 1, nil
		default:
			return wait(epfd, events, msec)
		}
	}
	ready, err := p.Poll(-1)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Same(t, ch, ready[0])
	assert.Equal(t, 3, calls)
}

func TestPoller_pollReturnsFatalErrors(t *testing.T) {
	p, _ := newTestPoller(t)
	p.wait = func(int, []unix.EpollEvent, int) (int, error) { return -1, unix.EBADF }
	_, err := p.Poll(-1)
	assert.ErrorIs(t, err, unix.EBADF)
}
