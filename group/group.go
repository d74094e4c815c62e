// Package group implements Group, a named collection of Nodes that
// makes it easier to associate the same set of nodes into multiple
// services' balancers at once. Groups do not own or destroy their
// nodes.
//
// Supplemental feature grounded on
// original_source/include/server/Group.hpp and Group.cpp; not present
// in spec.md but not excluded by its Non-goals either.
package group

import (
	"sync"

	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/node"
)

// Group is a named, unowned set of Nodes.
type Group struct {
	name string

	mu    sync.Mutex
	nodes map[*node.Node]struct{}
}

// New creates an empty Group.
func New(name string) *Group {
	return &Group{name: name, nodes: make(map[*node.Node]struct{})}
}

func (g *Group) Name() string {
	return g.name
}

// Associate adds n to the group; idempotent on duplicates.
func (g *Group) Associate(n *node.Node) error {
	if n == nil {
		return errs.ErrNilBuffer
	}
	g.mu.Lock()
	g.nodes[n] = struct{}{}
	g.mu.Unlock()
	return nil
}

// AssociateGroup merges other's current members into g.
func (g *Group) AssociateGroup(other *Group) error {
	if other == nil {
		return errs.ErrNilBuffer
	}
	members := other.Nodes()
	g.mu.Lock()
	for _, n := range members {
		g.nodes[n] = struct{}{}
	}
	g.mu.Unlock()
	return nil
}

// Detach removes n from the group; a no-op if absent.
func (g *Group) Detach(n *node.Node) error {
	if n == nil {
		return errs.ErrNilBuffer
	}
	g.mu.Lock()
	delete(g.nodes, n)
	g.mu.Unlock()
	return nil
}

// DetachGroup removes every member of other from g.
func (g *Group) DetachGroup(other *Group) error {
	if other == nil {
		return errs.ErrNilBuffer
	}
	members := other.Nodes()
	g.mu.Lock()
	for _, n := range members {
		delete(g.nodes, n)
	}
	g.mu.Unlock()
	return nil
}

// Nodes returns a snapshot of the group's current members.
func (g *Group) Nodes() []*node.Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*node.Node, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}
