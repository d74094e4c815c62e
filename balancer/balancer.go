// Package balancer implements pluggable node-selection strategies
// (round-robin, least-connections) behind a common contract that
// supports hot membership changes, per spec.md section 4.3.
//
// Grounded on original_source/source/server/balancers/*.cpp for
// semantics and bufbuild-httplb's basebalancer package for the
// Go-idiomatic shape of a swappable balancer interface.
package balancer

import "github.com/momentics/doforward/node"

// Balancer is the closed-set dispatch surface every algorithm
// implements. All methods are safe for concurrent use.
type Balancer interface {
	// GetNext selects a node for a new connection. commit=true
	// accounts for the pick (e.g. increments a per-node connection
	// count); commit=false is a probe that returns the current
	// selection without mutating balancer state. ok is false when no
	// node is associated.
	GetNext(commit bool) (n *node.Node, ok bool)

	// Release accounts for a bound connection going away, freeing
	// whatever credit GetNext's commit took for it. A no-op for
	// algorithms that track no per-node load.
	Release(n *node.Node)

	// Associate adds n to the balancer's membership. Idempotent on
	// duplicates; nil is an error.
	Associate(n *node.Node) error

	// Detach removes n from membership. Idempotent if n is absent;
	// nil is an error.
	Detach(n *node.Node) error

	// DetachAll clears membership.
	DetachAll()

	// CopyTo bulk-reassociates every current member into other,
	// returning the count copied.
	CopyTo(other Balancer) (int, error)

	// Members returns a snapshot of the current membership set.
	Members() []*node.Node
}

// Algorithm identifies a balancing strategy, as named in the
// configuration grammar (spec.md section 6).
type Algorithm int

const (
	RoundRobinAlgorithm Algorithm = iota
	LeastConnectionsAlgorithm
)

// New constructs a Balancer for the given algorithm.
func New(alg Algorithm) Balancer {
	switch alg {
	case LeastConnectionsAlgorithm:
		return NewLeastConnections()
	default:
		return NewRoundRobin()
	}
}
