//go:build linux

package reactor

import (
	"github.com/wuyongjia/pool"
)

func (s *Server) newBufferPool() *pool.Pool {
	var size = s.config.ReadBuffer
	return pool.New(20*s.reactor.Workers(), func() interface{} {
		var buf = make([]byte, size)
		return &buf
	})
}

func (s *Server) getBufferPoolItem() (*[]byte, error) {
	var iface, err = s.bufferPool.Get()
	if err != nil {
		return nil, err
	}
	var buffer, ok = iface.(*[]byte)
	if !ok {
		return nil, ErrorGetPoolBuffer
	}
	return buffer, nil
}

func (s *Server) putBufferPoolItem(buffer *[]byte) {
	s.bufferPool.Put(buffer)
}
