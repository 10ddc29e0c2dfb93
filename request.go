//go:build linux

package reactor

// request carries one lifecycle notification to the hook thread pool.
type request struct {
	Op      OpCode
	ID      uint64
	Remote  string
	Reason  CloseReason
	ErrCode ErrorCode
	Err     error
}

func (s *Server) triggerOnAccept(c *Connection) {
	if s.OnAccept != nil {
		s.invokeHook(&request{Op: OP_ACCEPT, ID: c.id, Remote: c.remote})
	}
}

func (s *Server) triggerOnClose(c *Connection, reason CloseReason) {
	if s.OnClose != nil {
		s.invokeHook(&request{Op: OP_CLOSE, ID: c.id, Reason: reason})
	}
}

// triggerOnError logs err and forwards it to the OnError hook. id is zero
// for errors that belong to no connection.
func (s *Server) triggerOnError(id uint64, code ErrorCode, err error) {
	s.logger.Debug().
		Uint64("conn", id).
		Str("code", code.String()).
		Err(err).
		Log("connection error")
	if s.OnError != nil {
		s.invokeHook(&request{Op: OP_ERROR, ID: id, ErrCode: code, Err: err})
	}
}

// invokeHook queues req for the hook threads without blocking. The caller is
// usually the loop goroutine, so a full queue drops the notification instead
// of stalling the reactor behind a slow hook.
func (s *Server) invokeHook(req *request) {
	select {
	case s.hooks.Args <- req:
	default:
		s.stats.hookDropped()
		s.logger.Warning().
			Str("component", "server").
			Uint64("conn", req.ID).
			Int("op", int(req.Op)).
			Log("hook queue full, notification dropped")
	}
}
