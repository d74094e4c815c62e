//go:build linux
// +build linux

package service

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/doforward/internal/errs"
)

// listenTCP binds and listens on host:port with SO_REUSEADDR, mirroring
// the teacher's raw-socket transport (internal/transport/transport_linux.go)
// rather than net.Listener, so the resulting file descriptor can be
// handed directly to the poller.
func listenTCP(host string, port uint16) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return -1, errs.Newf(errs.CodeNetwork, "socket: %v", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return -1, errs.Newf(errs.CodeNetwork, "setsockopt SO_REUSEADDR: %v", err)
	}

	ip := net.ParseIP(host).To4()
	if ip == nil {
		_ = unix.Close(fd)
		return -1, errs.Newf(errs.CodeValidation, "invalid IPv4 host %q", host)
	}
	addr := unix.SockaddrInet4{Port: int(port)}
	copy(addr.Addr[:], ip)

	if err := unix.Bind(fd, &addr); err != nil {
		_ = unix.Close(fd)
		return -1, errs.Newf(errs.CodeNetwork, "bind %s:%d: %v", host, port, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return -1, errs.Newf(errs.CodeNetwork, "listen %s:%d: %v", host, port, err)
	}
	return fd, nil
}

// acceptTCP accepts one connection, returning its non-blocking fd and
// the peer's address string ("ip:port").
func acceptTCP(listenFD int) (int, string, error) {
	nfd, sa, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
	if err != nil {
		return -1, "", err
	}
	addr := sockaddrString(sa)
	return nfd, addr, nil
}

func sockaddrString(sa unix.Sockaddr) string {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IPv4(v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3])
		return (&net.TCPAddr{IP: ip, Port: v.Port}).String()
	default:
		return "unknown"
	}
}

// recvInto reads into buf, returning the byte count. 0 with wouldBlock
// false means orderly close; a negative count is never returned,
// errors surface instead. EAGAIN/EWOULDBLOCK on a non-blocking socket
// is reported via wouldBlock rather than as a hard error or a false
// orderly-close, matching the teacher's Recv() carve-out for a
// readiness-triggered wakeup racing a real read.
func recvInto(fd int, buf []byte) (n int, wouldBlock bool, err error) {
	n, err = unix.Read(fd, buf)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, true, nil
	}
	return n, false, err
}

func closeFD(fd int) error {
	return unix.Close(fd)
}
