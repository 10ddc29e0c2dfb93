//go:build linux

package reactor

import (
	"time"
)

// dispatch hands action to the worker pool, holding a reference on c until
// it finishes. Runs on the loop goroutine.
func (s *Server) dispatch(c *Connection, action func(*Connection)) {
	s.touch(c)
	c.acquire()
	var ok = s.reactor.Submit(func() {
		var start = time.Now()
		defer func() {
			s.stats.recordTask(time.Since(start))
			c.release()
		}()
		if c.Closed() {
			return
		}
		action(c)
	})
	if !ok {
		c.release()
		s.triggerOnError(c.id, ERROR_POOL_CLOSED, ErrPoolClosed)
		s.closeConnection(c, CloseAbandoned)
	}
}

func (s *Server) readAction(c *Connection) {
	var buffer, err = s.getBufferPoolItem()
	if err != nil {
		s.triggerOnError(c.id, ERROR_POOL_BUFFER, err)
		s.postClose(c, CloseError)
		return
	}
	var n, eof, rerr = c.fill(*buffer)
	s.putBufferPoolItem(buffer)
	s.stats.addBytesIn(n)
	if rerr != nil {
		s.triggerOnError(c.id, ERROR_READ, rerr)
		s.postClose(c, CloseError)
		return
	}
	if eof {
		c.eof = true
		if c.in.Len() == 0 {
			s.postClose(c, ClosePeer)
			return
		}
	}
	s.process(c)
}

func (s *Server) writeAction(c *Connection) {
	if s.write(c) {
		s.process(c)
	}
}

// process feeds buffered input to the handler until it needs the loop to
// wait for readiness again.
func (s *Server) process(c *Connection) {
	for {
		switch s.handler.HandleReadable(c) {
		case NeedMoreInput:
			if c.eof {
				s.postClose(c, ClosePeer)
			} else {
				s.postArm(c, EventRead)
			}
			return
		case ResponseReady:
		default:
			s.triggerOnError(c.id, ERROR_PROTOCOL, ErrHandlerFatal)
			s.postClose(c, CloseProtocol)
			return
		}
		if !s.write(c) {
			return
		}
	}
}

// write runs the handler's write side. It returns true when the response
// drained and pipelined input is already waiting.
func (s *Server) write(c *Connection) bool {
	switch s.handler.HandleWritable(c) {
	case Drained:
		if c.eof || !s.handler.IsKeepAlive(c) {
			s.postClose(c, CloseDone)
			return false
		}
		if c.in.Len() > 0 {
			return true
		}
		s.postArm(c, EventRead)
	case WouldBlock:
		s.postArm(c, EventWrite)
	default:
		s.triggerOnError(c.id, ERROR_WRITE, ErrHandlerFatal)
		s.postClose(c, CloseError)
	}
	return false
}

// postArm asks the loop to re-arm c for ev. The one-shot mask means no
// further events arrive for c until this runs.
func (s *Server) postArm(c *Connection, ev Interest) {
	s.post(func() {
		if c.Closed() {
			return
		}
		s.touch(c)
		c.channel.SetInterest(s.connEvents | ev)
		if err := s.reactor.Modify(c.channel); err != nil && !c.Closed() {
			s.triggerOnError(c.id, ERROR_MODIFY_CONNECTION, err)
			s.closeConnection(c, CloseError)
		}
	})
}

func (s *Server) postClose(c *Connection, reason CloseReason) {
	s.post(func() {
		s.closeConnection(c, reason)
	})
}

func (s *Server) post(task func()) {
	if err := s.reactor.Post(task); err != nil {
		s.logger.Debug().
			Str("component", "server").
			Err(err).
			Log("task dropped, loop stopped")
	}
}
