//go:build linux

package reactor

import (
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"
)

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)).String()
	case *unix.SockaddrUnix:
		return a.Name
	default:
		return ""
	}
}

// ListenerFd duplicates the descriptor behind l and switches the copy to
// non-blocking mode so it can be passed to Serve. The caller owns the copy.
func ListenerFd(l *net.TCPListener) (int, error) {
	var raw, err = l.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd = -1
	var ctlErr = raw.Control(func(sysfd uintptr) {
		fd, err = unix.Dup(int(sysfd))
	})
	if ctlErr != nil {
		return -1, ctlErr
	}
	if err != nil {
		return -1, os.NewSyscallError("dup", err)
	}
	unix.CloseOnExec(fd)
	if err = unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("setnonblock", err)
	}
	return fd, nil
}
