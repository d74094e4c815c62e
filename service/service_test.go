//go:build linux
// +build linux

package service

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/momentics/doforward/node"
)

func freePort(t *testing.T) uint16 {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

func newTestService(t *testing.T, maxConn int) *Service {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.Host = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.MaxConnections = maxConn
	cfg.PollerWorkerSize = 8
	cfg.PollerMinWorkers = 1
	cfg.BufferPrealloc = 4
	cfg.BufferMax = 16
	cfg.BufferReserve = 2

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, err := node.New("n1", "127.0.0.1", 9999, node.TCP, node.None)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Balancer().Associate(n); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	return s
}

func dial(t *testing.T, s *Service) net.Conn {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(int(s.cfg.Port)))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestServiceAcceptsAndTearsDownPeers(t *testing.T) {
	s := newTestService(t, 5)
	defer s.Stop()

	var conns []net.Conn
	for i := 0; i < 5; i++ {
		conns = append(conns, dial(t, s))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.PeerCount() != 5 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.PeerCount(); got != 5 {
		t.Fatalf("expected 5 live peers, got %d", got)
	}

	for _, c := range conns {
		c.Close()
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.PeerCount() != 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.PeerCount(); got != 0 {
		t.Fatalf("expected 0 live peers after close, got %d", got)
	}
}

func TestServiceAdmissionControl(t *testing.T) {
	s := newTestService(t, 2)
	defer s.Stop()

	c1 := dial(t, s)
	c2 := dial(t, s)
	defer c1.Close()
	defer c2.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.PeerCount() != 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if s.PeerCount() != 2 {
		t.Fatalf("expected 2 live peers, got %d", s.PeerCount())
	}

	c3 := dial(t, s)
	defer c3.Close()

	// The third connection should be refused: read should observe EOF
	// or an error shortly, and live-peer count should stay at 2.
	c3.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err := c3.Read(buf)
	if err == nil {
		t.Fatal("expected refused third connection to be closed")
	}

	if s.PeerCount() != 2 {
		t.Fatalf("expected live-peer count to stay at 2, got %d", s.PeerCount())
	}
}
