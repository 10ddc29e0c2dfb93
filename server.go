//go:build linux

package reactor

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/wuyongjia/pool"
	"github.com/wuyongjia/threadpool"
	"golang.org/x/sys/unix"
)

// Server accepts connections on one listening socket and drives a Handler
// for each of them through a Reactor.
type Server struct {
	config     Config
	handler    Handler
	reactor    *Reactor
	bufferPool *pool.Pool
	hooks      *threadpool.Pool
	stats      *Stats
	logger     *logiface.Logger[logiface.Event]

	listener     *Channel
	ownsListener bool
	conns        map[uint64]*Connection
	nextID       uint64
	connEvents   Interest
	idleTimeout  atomic.Int64

	OnAccept OnAcceptEvent
	OnClose  OnCloseEvent
	OnError  OnErrorEvent
}

// New builds a server from config. Options are applied to the underlying
// Reactor after the ones derived from config.
func New(handler Handler, config Config, opts ...Option) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var base = []Option{
		WithWorkers(config.Workers),
		WithPollTimeout(time.Duration(config.PollTimeoutMs) * time.Millisecond),
		WithMaxEvents(config.MaxEvents),
	}
	var r, err = NewReactor(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	var s = &Server{
		config:     config,
		handler:    handler,
		reactor:    r,
		stats:      NewStats(),
		logger:     r.logger,
		conns:      make(map[uint64]*Connection),
		connEvents: EventPeerClosed | EventEdge | EventOneShot,
	}
	s.SetIdleTimeout(config.IdleTimeoutMs)
	s.bufferPool = s.newBufferPool()
	s.hooks = s.newThreadPool()
	return s, nil
}

// SetIdleTimeout sets how long a connection may sit without readiness
// before it is closed. Zero or less disables eviction. While serving, live
// connections pick the new value up on their next readiness event.
func (s *Server) SetIdleTimeout(ms int) {
	if ms < 0 {
		ms = 0
	}
	s.idleTimeout.Store(int64(time.Duration(ms) * time.Millisecond))
}

// IdleTimeout returns the current idle timeout, zero when disabled.
func (s *Server) IdleTimeout() time.Duration {
	return time.Duration(s.idleTimeout.Load())
}

// SetMaxConnections caps concurrent connections. Zero or less removes the
// cap. It must be called before Serve.
func (s *Server) SetMaxConnections(n int) {
	s.config.MaxConnections = n
}

func (s *Server) Config() Config {
	var c = s.config
	c.IdleTimeoutMs = int(s.IdleTimeout() / time.Millisecond)
	return c
}

func (s *Server) Stats() *Stats {
	return s.stats
}

func (s *Server) Reactor() *Reactor {
	return s.reactor
}

// ListenAndServe opens the configured address and serves on it.
func (s *Server) ListenAndServe() error {
	var fd, err = Listen(s.config.Address)
	if err != nil {
		s.shutdown()
		return err
	}
	s.ownsListener = true
	return s.Serve(fd)
}

// Serve runs the loop on the calling goroutine using fd, which must be a
// bound, listening, non-blocking socket. It returns once Stop is called or
// the loop fails; by then every connection has been closed and the reactor
// released. The caller keeps ownership of fd.
func (s *Server) Serve(fd int) error {
	var ch = NewChannel(fd)
	ch.SetInterest(EventRead | EventPeerClosed | EventEdge)
	ch.SetAcceptHandler(s.acceptAction)
	ch.SetErrorHandler(func(err error) {
		s.triggerOnError(0, ERROR_ACCEPT, err)
	})
	if err := s.reactor.Register(ch); err != nil {
		s.shutdown()
		return err
	}
	s.listener = ch

	var addr, _ = LocalAddr(fd)
	s.logger.Info().
		Str("component", "server").
		Str("addr", addr).
		Int("workers", s.reactor.Workers()).
		Int64("idle_timeout_ms", s.IdleTimeout().Milliseconds()).
		Int("max_connections", s.config.MaxConnections).
		Log("serving")

	var err = s.reactor.Loop()
	if err != nil {
		s.triggerOnError(0, ERROR_EPOLL_WAIT, err)
	}
	s.shutdown()
	return err
}

// Stop makes Serve return. It is safe to call from any goroutine.
func (s *Server) Stop() {
	s.reactor.Quit()
}

func (s *Server) shutdown() {
	for _, c := range s.conns {
		s.closeConnection(c, CloseShutdown)
	}
	if s.listener != nil {
		_ = s.reactor.Unregister(s.listener)
		if s.ownsListener {
			_ = unix.Close(s.listener.Fd())
		}
	}
	if err := s.reactor.Close(); err != nil {
		s.triggerOnError(0, ERROR_STOP, err)
	}
	// The hook pool is left open. Closing it makes its workers receive from a
	// closed channel in a tight loop; open, they park once the queue is empty.

	var snap = s.stats.Snapshot()
	s.logger.Info().
		Str("component", "server").
		Int64("accepted", snap.Accepted).
		Int64("closed", snap.Closed).
		Int64("timed_out", snap.TimedOut).
		Int64("rejected", snap.Rejected).
		Log("stopped")
}

func (s *Server) addConnection(fd int, remote string) {
	s.nextID++
	var c = newConnection(s.nextID, fd, remote, s.stats)
	var ch = NewChannel(fd)
	ch.SetInterest(s.connEvents | EventRead)
	ch.SetReadHandler(func() {
		s.dispatch(c, s.readAction)
	})
	ch.SetWriteHandler(func() {
		s.dispatch(c, s.writeAction)
	})
	ch.SetCloseHandler(func() {
		s.closeConnection(c, ClosePeer)
	})
	ch.SetErrorHandler(func(err error) {
		s.triggerOnError(c.id, ERROR_CLOSE_CONNECTION, err)
		s.closeConnection(c, CloseError)
	})
	c.channel = ch

	if err := s.reactor.Register(ch); err != nil {
		s.triggerOnError(c.id, ERROR_ADD_CONNECTION, err)
		c.closed.Store(true)
		c.release()
		return
	}
	s.conns[c.id] = c
	if timeout := s.IdleTimeout(); timeout > 0 {
		s.startTimer(c, timeout)
	}
	s.stats.connectionOpened()
	s.logger.Trace().
		Uint64("conn", c.id).
		Int("fd", fd).
		Str("remote", remote).
		Log("accepted")
	s.triggerOnAccept(c)
}

// closeConnection tears c down on the loop goroutine. The channel leaves the
// poller and the timer leaves the heap in the same step; the descriptor is
// closed later, when the last in-flight task lets go of it.
func (s *Server) closeConnection(c *Connection, reason CloseReason) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if err := s.reactor.Unregister(c.channel); err != nil && err != ErrFDNotRegistered {
		s.logger.Warning().
			Uint64("conn", c.id).
			Err(err).
			Log("unregister failed")
	}
	_ = s.reactor.CancelTimer(c.id)
	delete(s.conns, c.id)
	s.stats.connectionClosed(reason)
	s.logger.Trace().
		Uint64("conn", c.id).
		Str("reason", reason.String()).
		Log("closed")
	s.triggerOnClose(c, reason)
	c.release()
}

// touch pushes the idle deadline of c out by the full timeout. A timeout
// changed while serving is applied here: c gains or loses its timer.
func (s *Server) touch(c *Connection) {
	if c.Closed() {
		return
	}
	var timeout = s.IdleTimeout()
	switch {
	case timeout <= 0:
		_ = s.reactor.CancelTimer(c.id)
	case s.reactor.HasTimer(c.id):
		_ = s.reactor.AdjustTimer(c.id, timeout)
	default:
		s.startTimer(c, timeout)
	}
}

func (s *Server) startTimer(c *Connection, timeout time.Duration) {
	_ = s.reactor.AddTimer(c.id, timeout, func() {
		s.triggerOnError(c.id, ERROR_TIMEOUT, ErrIdleTimeout)
		s.closeConnection(c, CloseTimeout)
	})
}
