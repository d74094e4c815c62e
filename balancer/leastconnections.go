package balancer

import (
	"sync"

	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/node"
)

// lcEntry is one (currentConnectionCount, insertionTiebreak) -> node
// slot. A linear scan over entries for the minimum is a deliberate
// simplification of the source's map-keyed-by-tuple structure: service
// node counts are small, so this never shows up in profiles, and it
// sidesteps having to re-key on every count change.
type lcEntry struct {
	n        *node.Node
	count    int64
	tiebreak int64
}

// LeastConnections picks the node with the fewest live connections,
// breaking ties by insertion order.
type LeastConnections struct {
	mu           sync.Mutex
	entries      map[*node.Node]*lcEntry
	nextTiebreak int64
}

// NewLeastConnections creates an empty LeastConnections balancer.
func NewLeastConnections() *LeastConnections {
	return &LeastConnections{entries: make(map[*node.Node]*lcEntry)}
}

func (b *LeastConnections) Associate(n *node.Node) error {
	if n == nil {
		return errs.ErrNilBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[n]; ok {
		return nil
	}
	b.entries[n] = &lcEntry{n: n, tiebreak: b.nextTiebreak}
	b.nextTiebreak++
	return nil
}

func (b *LeastConnections) Detach(n *node.Node) error {
	if n == nil {
		return errs.ErrNilBuffer
	}
	b.mu.Lock()
	delete(b.entries, n)
	b.mu.Unlock()
	return nil
}

func (b *LeastConnections) DetachAll() {
	b.mu.Lock()
	b.entries = make(map[*node.Node]*lcEntry)
	b.mu.Unlock()
}

// GetNext returns the node with the lowest count, ties broken by
// insertion order. commit=true increments that node's count; commit=false
// is a pure probe.
func (b *LeastConnections) GetNext(commit bool) (*node.Node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var best *lcEntry
	for _, e := range b.entries {
		if best == nil || e.count < best.count ||
			(e.count == best.count && e.tiebreak < best.tiebreak) {
			best = e
		}
	}
	if best == nil {
		return nil, false
	}
	if commit {
		best.count++
	}
	return best.n, true
}

// Release decrements the node's connection count, freeing the credit
// a committed GetNext took for it. A no-op if the node is no longer
// associated or already at zero.
func (b *LeastConnections) Release(n *node.Node) {
	b.mu.Lock()
	if e, ok := b.entries[n]; ok && e.count > 0 {
		e.count--
	}
	b.mu.Unlock()
}

// CopyTo clears other and associates every current member into it,
// matching the original ConnectionCountBalancer::Copy's
// DetatchAll-then-associate sequence.
func (b *LeastConnections) CopyTo(other Balancer) (int, error) {
	b.mu.Lock()
	members := make([]*node.Node, 0, len(b.entries))
	for n := range b.entries {
		members = append(members, n)
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

func (b *LeastConnections) Members() []*node.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*node.Node, 0, len(b.entries))
	for n := range b.entries {
		out = append(out, n)
	}
	return out
}
