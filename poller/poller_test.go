//go:build linux
// +build linux

package poller

import (
	"os"
	"sync"
	"testing"
	"time"
)

func TestAddRemoveRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var readyCount int
	cb := func(read, write []uintptr) {
		mu.Lock()
		readyCount += len(read)
		mu.Unlock()
	}

	p, err := New(64, 16, 2, cb)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	defer r.Close()

	fd := r.Fd()
	if err := p.Add(fd, EventRead); err != nil {
		t.Fatal(err)
	}
	// idempotent re-add
	if err := p.Add(fd, EventRead); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := readyCount
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	got := readyCount
	mu.Unlock()
	if got == 0 {
		t.Fatal("expected at least one readiness callback")
	}

	if err := p.Remove(fd); err != nil {
		t.Fatal(err)
	}
}

func TestSingleWorkerSingleSocketCapacity(t *testing.T) {
	cb := func(read, write []uintptr) {}
	p, err := New(1, 1, 1, cb)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r1, w1, _ := os.Pipe()
	defer r1.Close()
	defer w1.Close()
	r2, w2, _ := os.Pipe()
	defer r2.Close()
	defer w2.Close()

	if err := p.Add(r1.Fd(), EventRead); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(r2.Fd(), EventRead); err == nil {
		t.Fatal("expected second Add to be rejected at maxSockets=1")
	}
}

func TestClosePollerJoinsWorkers(t *testing.T) {
	cb := func(read, write []uintptr) {}
	p, err := New(64, 16, 2, cb)
	if err != nil {
		t.Fatal(err)
	}
	r, w, _ := os.Pipe()
	defer r.Close()
	defer w.Close()
	if err := p.Add(r.Fd(), EventRead); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if p.WorkerCount() != 0 {
		t.Fatal("expected worker fleet to be cleared after Close")
	}
}
