package service

import (
	"github.com/momentics/doforward/node"
	"github.com/momentics/doforward/session"
)

// Peer is one accepted TCP connection: its socket handle, the Node
// chosen at accept time, and an optional Session. A Peer's Node is
// stable for the Peer's lifetime (layer-4 sticky per-connection).
type Peer struct {
	fd      int
	addr    string
	node    *node.Node
	session *session.Session
}

// FD returns the peer's raw socket descriptor, the same value it was
// registered with the poller under.
func (p *Peer) FD() int { return p.fd }

// Addr returns the remote address string presented at accept time.
func (p *Peer) Addr() string { return p.addr }

// Node returns the back-end this peer is bound to.
func (p *Peer) Node() *node.Node { return p.node }

// Session returns the peer's session binding, if the owning service
// has sessions enabled.
func (p *Peer) Session() *session.Session { return p.session }
