package server

import (
	"testing"

	"github.com/momentics/doforward/node"
	"github.com/momentics/doforward/service"
)

func mustService(t *testing.T, name string, port uint16) *service.Service {
	t.Helper()
	cfg := service.DefaultConfig()
	cfg.Name = name
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	svc, err := service.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func mustNode(t *testing.T, name string, port uint16) *node.Node {
	t.Helper()
	n, err := node.New(name, "10.0.0.1", port, node.TCP, node.None)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestAddServiceRejectsDuplicateName(t *testing.T) {
	s := New()
	a := mustService(t, "svc", 1)
	b := mustService(t, "svc", 2)

	added, err := s.AddService(a)
	if err != nil || !added {
		t.Fatalf("expected first add to succeed, got added=%v err=%v", added, err)
	}
	added, err = s.AddService(b)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Fatal("expected duplicate-name add to be rejected")
	}
}

func TestAddServiceRejectsDuplicateHost(t *testing.T) {
	s := New()
	a := mustService(t, "a", 100)
	b := mustService(t, "b", 100)

	if added, err := s.AddService(a); err != nil || !added {
		t.Fatalf("expected first add to succeed, got added=%v err=%v", added, err)
	}
	added, err := s.AddService(b)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Fatal("expected duplicate host-tuple add to be rejected")
	}
}

func TestAddNodeAssociatesIntoBalancer(t *testing.T) {
	s := New()
	svc := mustService(t, "svc", 1)
	if added, err := s.AddService(svc); err != nil || !added {
		t.Fatalf("AddService failed: added=%v err=%v", added, err)
	}

	n := mustNode(t, "n1", 2)
	added, err := s.AddNode(n, svc)
	if err != nil || !added {
		t.Fatalf("AddNode failed: added=%v err=%v", added, err)
	}

	members := svc.Balancer().Members()
	if len(members) != 1 || members[0] != n {
		t.Fatalf("expected balancer to hold n1, got %v", members)
	}
}

func TestRemoveServiceCascadesNodes(t *testing.T) {
	s := New()
	svc := mustService(t, "svc", 1)
	if _, err := s.AddService(svc); err != nil {
		t.Fatal(err)
	}

	n1 := mustNode(t, "n1", 2)
	n2 := mustNode(t, "n2", 3)
	if _, err := s.AddNode(n1, svc); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddNode(n2, svc); err != nil {
		t.Fatal(err)
	}

	removed, err := s.RemoveService(svc)
	if err != nil || !removed {
		t.Fatalf("RemoveService failed: removed=%v err=%v", removed, err)
	}

	if _, ok := s.GetNodeByName("n1"); ok {
		t.Fatal("expected n1 to be removed with its service")
	}
	if _, ok := s.GetNodeByName("n2"); ok {
		t.Fatal("expected n2 to be removed with its service")
	}
	if _, ok := s.GetServiceByName("svc"); ok {
		t.Fatal("expected svc to be removed")
	}
}

func TestNextServiceNameUsesRegistryCount(t *testing.T) {
	s := New()

	explicit := mustService(t, "Service 0", 1)
	if _, err := s.AddService(explicit); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	name := s.nextServiceName()
	s.mu.Unlock()

	if name != "Service 1" {
		t.Fatalf("expected next name to be 'Service 1', got %q", name)
	}
}
