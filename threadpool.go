//go:build linux

package reactor

import (
	"github.com/wuyongjia/threadpool"
)

// newThreadPool builds the pool that runs lifecycle hooks so user code never
// blocks the loop goroutine.
func (s *Server) newThreadPool() *threadpool.Pool {
	var p = threadpool.NewWithFunc(s.config.HookThreads, s.config.HookQueueLength, func(payload interface{}) {
		var req, ok = payload.(*request)
		if !ok {
			return
		}
		switch req.Op {
		case OP_ACCEPT:
			s.OnAccept(req.ID, req.Remote)
		case OP_CLOSE:
			s.OnClose(req.ID, req.Reason)
		case OP_ERROR:
			s.OnError(req.ID, req.ErrCode, req.Err)
		}
	})
	return p
}
