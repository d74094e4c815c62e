// Package server implements the top-level registry of services, nodes
// and groups, configuration ingestion, and process lifecycle (spec.md
// section 4.5).
//
// Grounded on original_source/include/server/Server.hpp and
// original_source/source/server/Server.cpp for the registry shape,
// name generation and config-loading algorithm.
package server

import (
	"fmt"
	"sync"

	"github.com/momentics/doforward/group"
	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/node"
	"github.com/momentics/doforward/service"
)

// hostKey is the secondary index key for both services and nodes: the
// (host, port, transport, application) tuple must be unique within
// each registry.
type hostKey struct {
	host        string
	port        uint16
	transport   node.Transport
	application node.Application
}

func keyOf(host string, port uint16, transport node.Transport, application node.Application) hostKey {
	return hostKey{host: host, port: port, transport: transport, application: application}
}

// Server owns every Service and Node in the process, indexed by
// identity and by address, plus named Groups available for bulk
// association into a Service's Balancer.
type Server struct {
	mu sync.Mutex

	services     map[*service.Service]struct{}
	servicesName map[string]*service.Service
	servicesHost map[hostKey]*service.Service

	nodes       map[*node.Node]struct{}
	nodesName   map[string]*node.Node
	nodesHost   map[hostKey]*node.Node
	nodeService map[*node.Node]*service.Service

	groups map[string]*group.Group

	defaultServiceConfig service.Config
	maxConnections       int
	comPort              uint16

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs an empty Server. Call Run to load a configuration
// file and start its services.
func New() *Server {
	return &Server{
		services:              make(map[*service.Service]struct{}),
		servicesName:          make(map[string]*service.Service),
		servicesHost:          make(map[hostKey]*service.Service),
		nodes:                 make(map[*node.Node]struct{}),
		nodesName:             make(map[string]*node.Node),
		nodesHost:             make(map[hostKey]*node.Node),
		nodeService:           make(map[*node.Node]*service.Service),
		groups:                make(map[string]*group.Group),
		defaultServiceConfig:  service.DefaultConfig(),
		maxConnections:        1024,
		stopCh:                make(chan struct{}),
	}
}

// MaxConnections returns the process-wide connection ceiling loaded
// from the /server/ mapping.
func (s *Server) MaxConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxConnections
}

// InterprocessPort returns the configured inter-process communication
// port. Reserved for a future control channel; unused by the data
// plane today.
func (s *Server) InterprocessPort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comPort
}

// AddService registers svc. Returns false without mutating the
// registry if svc's name or host tuple is already taken.
func (s *Server) AddService(svc *service.Service) (bool, error) {
	if svc == nil {
		return false, errs.New(errs.CodeInvalidInput, "server: service is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[svc]; ok {
		return false, nil
	}
	if _, ok := s.servicesName[svc.Name()]; ok {
		return false, nil
	}
	cfg := svc.Config()
	key := keyOf(cfg.Host, cfg.Port, cfg.Transport, cfg.Application)
	if _, ok := s.servicesHost[key]; ok {
		return false, nil
	}

	s.services[svc] = struct{}{}
	s.servicesName[svc.Name()] = svc
	s.servicesHost[key] = svc
	return true, nil
}

// RemoveService detaches and removes every node associated with svc,
// stops it, and removes it from the registry. Returns false if svc is
// not known.
func (s *Server) RemoveService(svc *service.Service) (bool, error) {
	if svc == nil {
		return false, errs.New(errs.CodeInvalidInput, "server: service is nil")
	}

	s.mu.Lock()
	if _, ok := s.services[svc]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	var affected []*node.Node
	for n, owner := range s.nodeService {
		if owner == svc {
			affected = append(affected, n)
		}
	}
	s.mu.Unlock()

	for _, n := range affected {
		if _, err := s.RemoveNode(n); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	cfg := svc.Config()
	key := keyOf(cfg.Host, cfg.Port, cfg.Transport, cfg.Application)
	delete(s.services, svc)
	delete(s.servicesName, svc.Name())
	delete(s.servicesHost, key)
	s.mu.Unlock()

	return true, svc.Stop()
}

// GetServiceByName looks up a service by its configured name.
func (s *Server) GetServiceByName(name string) (*service.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.servicesName[name]
	return svc, ok
}

// GetServiceByHost looks up a service by its (host, port, transport,
// application) tuple.
func (s *Server) GetServiceByHost(host string, port uint16, transport node.Transport, application node.Application) (*service.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.servicesHost[keyOf(host, port, transport, application)]
	return svc, ok
}

// AddNode registers n and associates it with svc's balancer. Returns
// false without mutating the registry if n's name or host tuple is
// already taken, or if svc is unknown.
func (s *Server) AddNode(n *node.Node, svc *service.Service) (bool, error) {
	if n == nil {
		return false, errs.New(errs.CodeInvalidInput, "server: node is nil")
	}
	if svc == nil {
		return false, errs.New(errs.CodeInvalidInput, "server: service is nil")
	}

	s.mu.Lock()
	if _, ok := s.services[svc]; !ok {
		s.mu.Unlock()
		return false, errs.New(errs.CodeInvalidInput, "server: service is not registered")
	}
	if _, ok := s.nodes[n]; ok {
		s.mu.Unlock()
		return false, nil
	}
	if _, ok := s.nodesName[n.Name()]; ok {
		s.mu.Unlock()
		return false, nil
	}
	key := keyOf(n.Host(), n.Port(), n.Transport(), n.Application())
	if _, ok := s.nodesHost[key]; ok {
		s.mu.Unlock()
		return false, nil
	}

	s.nodes[n] = struct{}{}
	s.nodesName[n.Name()] = n
	s.nodesHost[key] = n
	s.nodeService[n] = svc
	s.mu.Unlock()

	if err := svc.Balancer().Associate(n); err != nil {
		s.mu.Lock()
		delete(s.nodes, n)
		delete(s.nodesName, n.Name())
		delete(s.nodesHost, key)
		delete(s.nodeService, n)
		s.mu.Unlock()
		return false, err
	}

	return true, nil
}

// RemoveNode detaches n from its owning service's balancer and removes
// it from the registry. Returns false if n is not known.
func (s *Server) RemoveNode(n *node.Node) (bool, error) {
	if n == nil {
		return false, errs.New(errs.CodeInvalidInput, "server: node is nil")
	}

	s.mu.Lock()
	if _, ok := s.nodes[n]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	owner := s.nodeService[n]
	key := keyOf(n.Host(), n.Port(), n.Transport(), n.Application())
	delete(s.nodes, n)
	delete(s.nodesName, n.Name())
	delete(s.nodesHost, key)
	delete(s.nodeService, n)
	s.mu.Unlock()

	if owner != nil {
		if err := owner.Balancer().Detach(n); err != nil {
			return false, err
		}
	}
	return true, nil
}

// GetNodeByName looks up a node by its configured name.
func (s *Server) GetNodeByName(name string) (*node.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodesName[name]
	return n, ok
}

// GetNodeByHost looks up a node by its (host, port, transport,
// application) tuple.
func (s *Server) GetNodeByHost(host string, port uint16, transport node.Transport, application node.Application) (*node.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodesHost[keyOf(host, port, transport, application)]
	return n, ok
}

// Services returns a snapshot of every registered service.
func (s *Server) Services() []*service.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*service.Service, 0, len(s.services))
	for svc := range s.services {
		out = append(out, svc)
	}
	return out
}

// Nodes returns a snapshot of every registered node.
func (s *Server) Nodes() []*node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*node.Node, 0, len(s.nodes))
	for n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// AddGroup registers an empty named Group. Returns false without
// mutating the registry if the name is already taken.
func (s *Server) AddGroup(name string) (*group.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[name]; ok {
		return nil, false
	}
	g := group.New(name)
	s.groups[name] = g
	return g, true
}

// GetGroup looks up a named Group.
func (s *Server) GetGroup(name string) (*group.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	return g, ok
}

// AssociateGroupToService bulk-associates every current member of the
// named group into svc's balancer, returning the count associated.
func (s *Server) AssociateGroupToService(groupName string, svc *service.Service) (int, error) {
	if svc == nil {
		return 0, errs.New(errs.CodeInvalidInput, "server: service is nil")
	}
	s.mu.Lock()
	g, ok := s.groups[groupName]
	s.mu.Unlock()
	if !ok {
		return 0, errs.Newf(errs.CodeValidation, "server: unknown node group %q", groupName)
	}

	members := g.Nodes()
	for _, n := range members {
		if err := svc.Balancer().Associate(n); err != nil {
			return 0, err
		}
	}
	return len(members), nil
}

// nextServiceName returns the next auto-generated service name,
// "Service N", retrying with a "#k" suffix on collision.
func (s *Server) nextServiceName() string {
	return nextName(s.servicesName, "Service")
}

// nextNodeName returns the next auto-generated node name, "Node N".
func (s *Server) nextNodeName() string {
	return nextName(s.nodesName, "Node")
}

// nextName must be called with s.mu held.
func nextName[V any](taken map[string]V, noun string) string {
	base := fmt.Sprintf("%s %d", noun, len(taken))
	if _, ok := taken[base]; !ok {
		return base
	}
	for loops := 2; ; loops++ {
		candidate := fmt.Sprintf("%s#%d", base, loops)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
