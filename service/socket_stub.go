//go:build !linux
// +build !linux

package service

import "github.com/momentics/doforward/internal/errs"

func listenTCP(host string, port uint16) (int, error) {
	return -1, errs.New(errs.CodeNetwork, "service: this platform is not supported")
}

func acceptTCP(listenFD int) (int, string, error) {
	return -1, "", errs.New(errs.CodeNetwork, "service: this platform is not supported")
}

func recvInto(fd int, buf []byte) (int, bool, error) {
	return 0, false, errs.New(errs.CodeNetwork, "service: this platform is not supported")
}

func closeFD(fd int) error {
	return nil
}
