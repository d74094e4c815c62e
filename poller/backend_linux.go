//go:build linux
// +build linux

package poller

import (
	"golang.org/x/sys/unix"
)

const maxEpollEvents = 128

// epollBackend drives one worker's wait set via epoll, using a
// non-blocking pipe as the self-pipe alert descriptor — the native
// primitive the design notes prefer over opening a throwaway UDP
// socket purely to interrupt a blocking wait.
type epollBackend struct {
	epfd   int
	alertR int
	alertW int
}

func newBackend() (backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}

	b := &epollBackend{epfd: epfd, alertR: fds[0], alertW: fds[1]}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(b.alertR)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, b.alertR, &ev); err != nil {
		_ = unix.Close(b.alertR)
		_ = unix.Close(b.alertW)
		_ = unix.Close(epfd)
		return nil, err
	}
	return b, nil
}

func (b *epollBackend) add(fd uintptr, events Events) error {
	var mask uint32
	if events&EventRead != 0 {
		mask |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev)
	if err == unix.EEXIST {
		return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev)
	}
	return err
}

func (b *epollBackend) remove(fd uintptr) error {
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (b *epollBackend) wait() ([]uintptr, []uintptr, error) {
	var events [maxEpollEvents]unix.EpollEvent

	n, err := unix.EpollWait(b.epfd, events[:], -1)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var read, write []uintptr
	for i := 0; i < n; i++ {
		ev := events[i]
		if int(ev.Fd) == b.alertR {
			b.drainAlert()
			continue
		}
		fd := uintptr(ev.Fd)
		if ev.Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			read = append(read, fd)
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			write = append(write, fd)
		}
	}
	return read, write, nil
}

func (b *epollBackend) drainAlert() {
	var buf [64]byte
	for {
		_, err := unix.Read(b.alertR, buf[:])
		if err != nil {
			return
		}
	}
}

func (b *epollBackend) alert() error {
	_, err := unix.Write(b.alertW, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (b *epollBackend) close() error {
	_ = unix.Close(b.alertR)
	_ = unix.Close(b.alertW)
	return unix.Close(b.epfd)
}
