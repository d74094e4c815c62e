package server

import (
	"github.com/momentics/doforward/group"
	"github.com/momentics/doforward/internal/config"
	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/internal/logging"
	"github.com/momentics/doforward/node"
	"github.com/momentics/doforward/service"
)

var log = logging.New("server")

// Run loads the configuration file at path, builds every service,
// node and group it describes, and starts each service listening. It
// returns once every service has been started; call Finish to block
// until Stop is called.
func (s *Server) Run(path string) error {
	raw, err := config.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if raw.Server.MaxConnections > 0 {
		s.maxConnections = raw.Server.MaxConnections
	}
	if raw.Server.ComPort > 0 {
		s.comPort = uint16(raw.Server.ComPort)
	}
	s.mu.Unlock()

	if err := s.loadNodeGroups(raw.NodeGroups); err != nil {
		return err
	}

	for i, rawSvc := range raw.Services {
		if err := s.loadService(rawSvc, i); err != nil {
			return err
		}
	}

	s.mu.Lock()
	services := make([]*service.Service, 0, len(s.services))
	for svc := range s.services {
		services = append(services, svc)
	}
	s.mu.Unlock()

	for _, svc := range services {
		if err := svc.Start(); err != nil {
			return err
		}
	}

	return nil
}

// Stop unblocks any goroutine parked in Finish and stops every
// registered service. Safe to call once; subsequent calls are no-ops.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})

	s.mu.Lock()
	services := make([]*service.Service, 0, len(s.services))
	for svc := range s.services {
		services = append(services, svc)
	}
	s.mu.Unlock()

	for _, svc := range services {
		if err := svc.Stop(); err != nil {
			log.Warnf("stopping service %s: %v", svc.Name(), err)
		}
	}
}

// Finish blocks the calling goroutine until Stop is called.
func (s *Server) Finish() {
	<-s.stopCh
}

func (s *Server) loadNodeGroups(raw []config.RawNodeGroup) error {
	for _, rg := range raw {
		if rg.Name == "" {
			return errs.New(errs.CodeValidation, "config: node group is missing a name")
		}

		s.mu.Lock()
		if _, exists := s.groups[rg.Name]; exists {
			s.mu.Unlock()
			return errs.Newf(errs.CodeValidation, "config: duplicate node group %q", rg.Name)
		}
		g := group.New(rg.Name)
		s.groups[rg.Name] = g
		s.mu.Unlock()

		for i, rawNode := range rg.Nodes {
			n, err := s.buildNode(rawNode, i)
			if err != nil {
				return err
			}
			if err := g.Associate(n); err != nil {
				return err
			}

			s.mu.Lock()
			key := keyOf(n.Host(), n.Port(), n.Transport(), n.Application())
			if _, taken := s.nodesHost[key]; taken {
				s.mu.Unlock()
				return errs.Newf(errs.CodeValidation, "config: duplicate node in group %q at index %d", rg.Name, i)
			}
			s.nodes[n] = struct{}{}
			s.nodesName[n.Name()] = n
			s.nodesHost[key] = n
			s.mu.Unlock()
		}
	}
	return nil
}

func (s *Server) loadService(raw config.RawService, index int) error {
	if raw.Protocol == "" {
		return errs.Newf(errs.CodeValidation, "config: protocol of service no. %d is missing", index)
	}
	transport, application, err := config.ParseProtocol(raw.Protocol)
	if err != nil {
		return err
	}
	if raw.Host == "" {
		return errs.Newf(errs.CodeValidation, "config: invalid host address of service no. %d", index)
	}
	if raw.Port == 0 {
		return errs.Newf(errs.CodeValidation, "config: port of service no. %d is missing or 0", index)
	}
	algorithm, err := config.ParseAlgorithm(raw.Balancing)
	if err != nil {
		return err
	}
	sessionTimeout, err := config.ParseSessionDuration(raw.Session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	name := raw.Name
	if name == "" {
		name = s.nextServiceName()
	}
	cfg := s.defaultServiceConfig
	s.mu.Unlock()

	cfg.Name = name
	cfg.Host = raw.Host
	cfg.Port = uint16(raw.Port)
	cfg.Transport = transport
	cfg.Application = application
	cfg.Algorithm = algorithm
	cfg.SessionTimeout = sessionTimeout
	if raw.MaxConnections > 0 {
		cfg.MaxConnections = raw.MaxConnections
	}

	svc, err := service.New(cfg)
	if err != nil {
		return err
	}

	added, err := s.AddService(svc)
	if err != nil {
		return err
	}
	if !added {
		return errs.Newf(errs.CodeValidation, "config: duplicate of service no. %d", index)
	}

	for i, rawNode := range raw.Nodes {
		n, err := s.buildNode(rawNode, i)
		if err != nil {
			return err
		}
		added, err := s.AddNode(n, svc)
		if err != nil {
			return err
		}
		if !added {
			return errs.Newf(errs.CodeValidation, "config: duplicate of node no. %d, for service no. %d", i, index)
		}
	}

	for _, groupName := range raw.Groups {
		if _, err := s.AssociateGroupToService(groupName, svc); err != nil {
			return errs.Newf(errs.CodeValidation, "config: service no. %d, group %q: %v", index, groupName, err)
		}
	}

	return nil
}

func (s *Server) buildNode(raw config.RawNode, index int) (*node.Node, error) {
	if raw.Protocol == "" {
		return nil, errs.Newf(errs.CodeValidation, "config: protocol of node no. %d is missing", index)
	}
	transport, application, err := config.ParseProtocol(raw.Protocol)
	if err != nil {
		return nil, err
	}
	if raw.Host == "" {
		return nil, errs.Newf(errs.CodeValidation, "config: invalid host address of node no. %d", index)
	}
	if raw.Port == 0 {
		return nil, errs.Newf(errs.CodeValidation, "config: port of node no. %d is missing or 0", index)
	}

	s.mu.Lock()
	name := raw.Name
	if name == "" {
		name = s.nextNodeName()
	}
	s.mu.Unlock()

	return node.New(name, raw.Host, uint16(raw.Port), transport, application)
}
