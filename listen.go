//go:build linux

package reactor

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Listen opens a non-blocking TCP listening socket on address, which may
// use port 0 to pick a free port.
func Listen(address string) (int, error) {
	var addr, err = net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return -1, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, address, err)
	}
	var domain int
	var sa unix.Sockaddr
	if ip4 := addr.IP.To4(); addr.IP == nil || ip4 != nil {
		var sa4 = &unix.SockaddrInet4{Port: addr.Port}
		copy(sa4.Addr[:], ip4)
		domain, sa = unix.AF_INET, sa4
	} else {
		var sa6 = &unix.SockaddrInet6{Port: addr.Port}
		copy(sa6.Addr[:], addr.IP.To16())
		domain, sa = unix.AF_INET6, sa6
	}

	var fd int
	if fd, err = unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0); err != nil {
		return -1, os.NewSyscallError("socket", err)
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("setsockopt", err)
	}
	if err = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("setsockopt", err)
	}
	if err = unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("bind", err)
	}
	if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("listen", err)
	}
	return fd, nil
}

// LocalAddr returns the address fd is bound to, as host:port.
func LocalAddr(fd int) (string, error) {
	var sa, err = unix.Getsockname(fd)
	if err != nil {
		return "", os.NewSyscallError("getsockname", err)
	}
	return sockaddrString(sa), nil
}
