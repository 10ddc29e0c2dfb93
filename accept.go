//go:build linux

package reactor

import (
	"os"

	"golang.org/x/sys/unix"
)

var serverBusyReply = []byte("Server busy!")

// acceptAction drains the edge-triggered listener.
func (s *Server) acceptAction() {
	var fd = s.listener.Fd()
	for {
		var nfd, sa, err = unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			switch err {
			case unix.EINTR, unix.ECONNABORTED:
				continue
			case unix.EAGAIN:
			default:
				s.triggerOnError(0, ERROR_ACCEPT, os.NewSyscallError("accept4", err))
			}
			return
		}
		if s.config.MaxConnections > 0 && len(s.conns) >= s.config.MaxConnections {
			s.rejectBusy(nfd)
			continue
		}
		s.addConnection(nfd, sockaddrString(sa))
	}
}

func (s *Server) rejectBusy(fd int) {
	_, _ = unix.Write(fd, serverBusyReply)
	_ = unix.Close(fd)
	s.stats.connectionRejected()
	s.triggerOnError(0, ERROR_SERVER_BUSY, ErrServerBusy)
}
