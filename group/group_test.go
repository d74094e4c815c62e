package group

import (
	"testing"

	"github.com/momentics/doforward/node"
)

func mustNode(t *testing.T, name string, port uint16) *node.Node {
	n, err := node.New(name, "127.0.0.1", port, node.TCP, node.None)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestAssociateIsIdempotent(t *testing.T) {
	g := New("g1")
	n := mustNode(t, "n1", 1)
	if err := g.Associate(n); err != nil {
		t.Fatal(err)
	}
	if err := g.Associate(n); err != nil {
		t.Fatal(err)
	}
	if got := len(g.Nodes()); got != 1 {
		t.Fatalf("expected 1 member after duplicate associate, got %d", got)
	}
}

func TestDetachRemovesMember(t *testing.T) {
	g := New("g1")
	n := mustNode(t, "n1", 1)
	if err := g.Associate(n); err != nil {
		t.Fatal(err)
	}
	if err := g.Detach(n); err != nil {
		t.Fatal(err)
	}
	if got := len(g.Nodes()); got != 0 {
		t.Fatalf("expected 0 members after detach, got %d", got)
	}
}

func TestAssociateGroupMergesMembers(t *testing.T) {
	a := New("a")
	b := New("b")
	n1 := mustNode(t, "n1", 1)
	n2 := mustNode(t, "n2", 2)
	if err := a.Associate(n1); err != nil {
		t.Fatal(err)
	}
	if err := b.Associate(n2); err != nil {
		t.Fatal(err)
	}

	if err := a.AssociateGroup(b); err != nil {
		t.Fatal(err)
	}
	if got := len(a.Nodes()); got != 2 {
		t.Fatalf("expected 2 members after merge, got %d", got)
	}
}

func TestDetachGroupRemovesMembers(t *testing.T) {
	a := New("a")
	b := New("b")
	n1 := mustNode(t, "n1", 1)
	n2 := mustNode(t, "n2", 2)
	for _, n := range []*node.Node{n1, n2} {
		if err := a.Associate(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Associate(n1); err != nil {
		t.Fatal(err)
	}

	if err := a.DetachGroup(b); err != nil {
		t.Fatal(err)
	}
	members := a.Nodes()
	if len(members) != 1 || members[0] != n2 {
		t.Fatalf("expected only n2 to remain, got %v", members)
	}
}
