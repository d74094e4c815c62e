package session

import (
	"sync"
	"time"

	"github.com/momentics/doforward/node"
)

// Store is a service-scoped table keying a Session by peer identity
// (the remote address a reconnecting peer presents). It replaces the
// cyclic Service<->Session back-pointers the original keeps with a
// flat, Service-owned map, per spec.md section 9's arena/index
// re-architecture note.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Bind returns the existing valid session for identity, resetting it,
// or creates a new one bound to n with the given timeout. timeout <= 0
// disables sessions: Bind always returns nil in that case.
func (st *Store) Bind(identity string, n *node.Node, timeout time.Duration) *Session {
	if timeout <= 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[identity]; ok && s.IsValid() {
		s.Reset()
		return s
	}
	s := New(n, timeout)
	st.sessions[identity] = s
	return s
}

// Forget removes a session, e.g. once its peer disconnects with no
// intent to reconnect under the service's session timeout.
func (st *Store) Forget(identity string) {
	st.mu.Lock()
	delete(st.sessions, identity)
	st.mu.Unlock()
}

// Lookup returns the session for identity if one exists and is still
// valid.
func (st *Store) Lookup(identity string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[identity]
	if !ok || !s.IsValid() {
		return nil, false
	}
	return s, true
}
