package balancer

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

func TestRoundRobinDistributesEvenly(t *testing.T) {
	b := NewRoundRobin()
	a := mustNode(t, "A", 9001)
	nb := mustNode(t, "B", 9002)
	c := mustNode(t, "C", 9003)
	for _, n := range []*node.Node{a, nb, c} {
		if err := b.Associate(n); err != nil {
			t.Fatal(err)
		}
	}

	want := []*node.Node{a, nb, c, a, nb, c, a}
	for i, w := range want {
		got, ok := b.GetNext(true)
		if !ok {
			t.Fatalf("call %d: expected a node", i)
		}
		if got != w {
			t.Fatalf("call %d: got %v, want %v", i, got, w)
		}
	}
}

func TestRoundRobinAssociateDetachRoundTrip(t *testing.T) {
	b := NewRoundRobin()
	a := mustNode(t, "A", 9001)
	if err := b.Associate(a); err != nil {
		t.Fatal(err)
	}
	if err := b.Detach(a); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.GetNext(true); ok {
		t.Fatal("expected empty balancer after detach")
	}
}

func TestRoundRobinEmptyReturnsFalse(t *testing.T) {
	b := NewRoundRobin()
	if _, ok := b.GetNext(true); ok {
		t.Fatal("expected false on empty balancer")
	}
}

func TestLeastConnectionsPicksLowestAfterClose(t *testing.T) {
	b := NewLeastConnections()
	a := mustNode(t, "A", 9001)
	nb := mustNode(t, "B", 9002)
	c := mustNode(t, "C", 9003)
	for _, n := range []*node.Node{a, nb, c} {
		if err := b.Associate(n); err != nil {
			t.Fatal(err)
		}
	}

	first, _ := b.GetNext(true)  // -> A (tiebreak 0)
	second, _ := b.GetNext(true) // -> B (tiebreak 1)
	_, _ = b.GetNext(true)       // -> C (tiebreak 2)
	if first != a || second != nb {
		t.Fatalf("expected insertion-order tiebreak A,B got %v,%v", first, second)
	}

	b.Release(nb) // B drops back to 0 connections

	next1, _ := b.GetNext(true) // -> B, the unique minimum (count 0)
	next2, _ := b.GetNext(true) // all tied at count 1; insertion order favors A
	if next1 != nb || next2 != a {
		t.Fatalf("expected B then A (insertion-order tiebreak), got %v then %v", next1, next2)
	}
}

func TestLeastConnectionsProbeDoesNotMutate(t *testing.T) {
	b := NewLeastConnections()
	a := mustNode(t, "A", 9001)
	if err := b.Associate(a); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		n, ok := b.GetNext(false)
		if !ok || n != a {
			t.Fatalf("probe %d: unexpected result %v %v", i, n, ok)
		}
	}
}

func TestCopyToBulkReassociates(t *testing.T) {
	src := NewRoundRobin()
	dst := NewLeastConnections()
	a := mustNode(t, "A", 9001)
	nb := mustNode(t, "B", 9002)
	src.Associate(a)
	src.Associate(nb)

	n, err := src.CopyTo(dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 copied, got %d", n)
	}
	if len(dst.Members()) != 2 {
		t.Fatalf("expected 2 members in dst, got %d", len(dst.Members()))
	}
}
