package balancer

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/node"
)

// RoundRobin maintains an ordered, rotating sequence of nodes plus a
// set view with identical membership (spec.md's invariant). GetNext
// pops the head and pushes it to the tail in O(1), using
// eapache/queue's ring-buffer-backed queue as the rotating sequence —
// the dependency the teacher's go.mod already declares for exactly
// this shape of problem.
type RoundRobin struct {
	mu sync.Mutex
	q  *queue.Queue
	in map[*node.Node]struct{}
}

// NewRoundRobin creates an empty RoundRobin balancer.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{q: queue.New(), in: make(map[*node.Node]struct{})}
}

func (b *RoundRobin) Associate(n *node.Node) error {
	if n == nil {
		return errs.ErrNilBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.in[n]; ok {
		return nil
	}
	b.in[n] = struct{}{}
	b.q.Add(n)
	return nil
}

func (b *RoundRobin) Detach(n *node.Node) error {
	if n == nil {
		return errs.ErrNilBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.in[n]; !ok {
		return nil
	}
	delete(b.in, n)
	b.rebuildLocked()
	return nil
}

func (b *RoundRobin) DetachAll() {
	b.mu.Lock()
	b.q = queue.New()
	b.in = make(map[*node.Node]struct{})
	b.mu.Unlock()
}

// GetNext pops the head of the rotation and pushes it to the tail.
// commit has no effect: round-robin has no per-node load to account
// for, so probing and committing are the same operation.
func (b *RoundRobin) GetNext(commit bool) (*node.Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.q.Length() == 0 {
		return nil, false
	}
	n := b.q.Peek().(*node.Node)
	b.q.Remove()
	b.q.Add(n)
	return n, true
}

func (b *RoundRobin) Release(n *node.Node) {
	// Round-robin tracks no per-node load; nothing to free.
}

// CopyTo clears other and associates every current member into it, in
// rotation order, matching the original RoundRobinBalancer::Copy's
// DetatchAll-then-associate sequence.
func (b *RoundRobin) CopyTo(other Balancer) (int, error) {
	b.mu.Lock()
	members := make([]*node.Node, 0, b.q.Length())
	for i := 0; i < b.q.Length(); i++ {
		members = append(members, b.q.Get(i).(*node.Node))
	}
	b.mu.Unlock()

	other.DetachAll()

	count := 0
	for _, n := range members {
		if err := other.Associate(n); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (b *RoundRobin) Members() []*node.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*node.Node, 0, len(b.in))
	for n := range b.in {
		out = append(out, n)
	}
	return out
}

// rebuildLocked drops members no longer in b.in while preserving
// rotation order. Called with b.mu held.
func (b *RoundRobin) rebuildLocked() {
	fresh := queue.New()
	for b.q.Length() > 0 {
		n := b.q.Peek().(*node.Node)
		b.q.Remove()
		if _, ok := b.in[n]; ok {
			fresh.Add(n)
		}
	}
	b.q = fresh
}
