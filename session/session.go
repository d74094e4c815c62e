// Package session implements the timeout-bounded sticky-peer-to-node
// binding described in spec.md section 3, grounded on
// original_source/include/server/Session.hpp. A Session with timeout
// zero is never valid; Reset restarts the window from now.
package session

import (
	"sync"
	"time"

	"github.com/momentics/doforward/node"
)

// Session binds a peer identity to a Node for as long as its timer
// has not elapsed.
type Session struct {
	mu        sync.Mutex
	node      *node.Node
	timeout   time.Duration
	expiresAt time.Time
}

// New creates a Session bound to n with the given timeout. A timeout
// of 0 produces a Session that is never valid (IsValid always false).
func New(n *node.Node, timeout time.Duration) *Session {
	s := &Session{node: n, timeout: timeout}
	if timeout > 0 {
		s.expiresAt = time.Now().Add(timeout)
	}
	return s
}

// Node returns the bound node.
func (s *Session) Node() *node.Node {
	return s.node
}

// Timeout returns the configured timeout.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// IsValid reports whether the session's timer has not yet elapsed.
// Always false when the timeout is 0.
func (s *Session) IsValid() bool {
	if s.timeout <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.expiresAt)
}

// Reset restarts the timeout window from now.
func (s *Session) Reset() {
	if s.timeout <= 0 {
		return
	}
	s.mu.Lock()
	s.expiresAt = time.Now().Add(s.timeout)
	s.mu.Unlock()
}

// TimeLeft returns the remaining validity window; zero or negative
// once expired.
func (s *Session) TimeLeft() time.Duration {
	if s.timeout <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Until(s.expiresAt)
}
