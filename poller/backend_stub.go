//go:build !linux
// +build !linux

package poller

import "github.com/momentics/doforward/internal/errs"

// newBackend reports unsupported platforms. Only Linux epoll is
// implemented; every other platform, Windows included, gets this
// not-supported error.
func newBackend() (backend, error) {
	return nil, errs.New(errs.CodeNetwork, "poller: this platform is not supported")
}
