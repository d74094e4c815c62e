package bufferpool

import (
	"testing"
	"time"
)

func TestNewRejectsZeroSize(t *testing.T) {
	if _, err := New[byte](0, 1, 1, 0, 0); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := New[byte](16, 0, 1, 0, 0); err == nil {
		t.Fatal("expected error for zero preallocation")
	}
}

func TestPollEmptyZeroTimeout(t *testing.T) {
	p, err := New[byte](16, 1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	buf, err := p.Poll(0)
	if err != nil {
		t.Fatal(err)
	}
	if buf == nil {
		t.Fatal("expected a preallocated buffer")
	}

	buf2, err := p.Poll(0)
	if err != nil {
		t.Fatal(err)
	}
	if buf2 != nil {
		t.Fatal("expected nil: pool exhausted and timeout is 0")
	}
}

func TestReturnRejectsNil(t *testing.T) {
	p, err := New[byte](16, 1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Return(nil); err == nil {
		t.Fatal("expected error returning nil buffer")
	}
}

func TestPollWaitsForReturn(t *testing.T) {
	p, err := New[byte](16, 1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	buf, err := p.Poll(0)
	if err != nil || buf == nil {
		t.Fatalf("unexpected: %v %v", buf, err)
	}

	done := make(chan *Buffer[byte], 1)
	go func() {
		b, _ := p.Poll(Infinite)
		done <- b
	}()

	time.Sleep(20 * time.Millisecond)
	if err := p.Return(buf); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-done:
		if got == nil {
			t.Fatal("expected a buffer after return")
		}
	case <-time.After(time.Second):
		t.Fatal("Poll(Infinite) did not unblock after Return")
	}
}

func TestStatsRespectMax(t *testing.T) {
	p, err := New[byte](8, 2, 4, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var bufs []*Buffer[byte]
	for i := 0; i < 4; i++ {
		b, err := p.Poll(0)
		if err != nil {
			t.Fatal(err)
		}
		if b == nil {
			break
		}
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		if err := p.Return(b); err != nil {
			t.Fatal(err)
		}
	}

	stats := p.Stats()
	if stats.MainLen > 4 {
		t.Fatalf("main queue exceeded max: %+v", stats)
	}
	if stats.ReserveLen > 1 {
		t.Fatalf("reserve queue exceeded target: %+v", stats)
	}
}
