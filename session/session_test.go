package session

import (
	"testing"
	"time"

	"github.com/momentics/doforward/node"
)

func testNode(t *testing.T) *node.Node {
	n, err := node.New("n1", "127.0.0.1", 9100, node.TCP, node.None)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestZeroTimeoutNeverValid(t *testing.T) {
	s := New(testNode(t), 0)
	if s.IsValid() {
		t.Fatal("expected zero-timeout session to never be valid")
	}
	s.Reset()
	if s.IsValid() {
		t.Fatal("Reset on a zero-timeout session must not make it valid")
	}
}

func TestValidForTimeoutAfterReset(t *testing.T) {
	s := New(testNode(t), 50*time.Millisecond)
	if !s.IsValid() {
		t.Fatal("expected session to be valid immediately after creation")
	}
	time.Sleep(80 * time.Millisecond)
	if s.IsValid() {
		t.Fatal("expected session to expire after its timeout")
	}
	s.Reset()
	if !s.IsValid() {
		t.Fatal("expected Reset to revalidate the session")
	}
}

func TestStoreBindReusesValidSession(t *testing.T) {
	st := NewStore()
	n := testNode(t)
	s1 := st.Bind("peer-a", n, 100*time.Millisecond)
	s2 := st.Bind("peer-a", n, 100*time.Millisecond)
	if s1 != s2 {
		t.Fatal("expected Bind to return the same session while still valid")
	}
}

func TestStoreBindDisabledOnZeroTimeout(t *testing.T) {
	st := NewStore()
	if s := st.Bind("peer-a", testNode(t), 0); s != nil {
		t.Fatal("expected nil session when timeout is disabled")
	}
}
