// Package service implements the TCP Service lifecycle specified in
// spec.md section 4.4: listen, accept, a peer table, and the
// machinery joining accepted connections to the Poller and
// BufferPool. Grounded on original_source/include/server/services/TcpService.hpp
// for the state machine and the teacher's transport/tcp/listener.go
// for the accept-loop shape.
package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/doforward/balancer"
	"github.com/momentics/doforward/bufferpool"
	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/internal/logging"
	"github.com/momentics/doforward/poller"
	"github.com/momentics/doforward/session"
)

// Service owns a listen socket, a buffer pool, a poller, a peer table
// and a balancer.
type Service struct {
	cfg Config
	log *logging.Logger

	bal      balancer.Balancer
	pool     *bufferpool.Pool[byte]
	pl       *poller.Poller
	sessions *session.Store

	listenFD int

	mu      sync.Mutex
	peers   map[int]*Peer
	started bool

	acceptDone chan struct{}
}

// New constructs a Service bound to cfg. It does not touch the
// network; call Start to bind and begin accepting.
func New(cfg Config) (*Service, error) {
	if cfg.Name == "" {
		return nil, errs.New(errs.CodeValidation, "service: name must not be empty")
	}
	if cfg.Port == 0 {
		return nil, errs.New(errs.CodeValidation, "service: port must be non-zero")
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}

	s := &Service{
		cfg:      cfg,
		log:      logging.New(fmt.Sprintf("service[%s:%d]", cfg.Host, cfg.Port)),
		bal:      balancer.New(cfg.Algorithm),
		sessions: session.NewStore(),
		peers:    make(map[int]*Peer),
		listenFD: -1,
	}
	return s, nil
}

// Balancer exposes the service's balancer for Server.AddNode to
// associate nodes into.
func (s *Service) Balancer() balancer.Balancer { return s.bal }

// Name returns the service's configured name.
func (s *Service) Name() string { return s.cfg.Name }

// Config returns a copy of the service's configuration.
func (s *Service) Config() Config { return s.cfg }

// PeerCount returns the number of currently live peers.
func (s *Service) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Start binds the listen socket, constructs the buffer pool and
// poller, and spawns the accept goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	fd, err := listenTCP(s.cfg.Host, s.cfg.Port)
	if err != nil {
		return err
	}

	pool, err := bufferpool.New[byte](
		s.cfg.BufferSize, s.cfg.BufferPrealloc, s.cfg.BufferMax,
		s.cfg.BufferReserve, s.cfg.BufferAllocBatch,
	)
	if err != nil {
		_ = closeFD(fd)
		return err
	}

	pl, err := poller.New(s.cfg.MaxConnections, s.cfg.PollerWorkerSize, s.cfg.PollerMinWorkers, s.onReadiness)
	if err != nil {
		pool.Close()
		_ = closeFD(fd)
		return err
	}

	s.mu.Lock()
	s.listenFD = fd
	s.pool = pool
	s.pl = pl
	s.started = true
	s.acceptDone = make(chan struct{})
	s.mu.Unlock()

	go s.acceptLoop(fd)

	return nil
}

// Stop closes the listen socket (unblocking the accept loop), joins
// it, destroys every surviving peer, then tears down the poller and
// buffer pool.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	fd := s.listenFD
	s.listenFD = -1
	done := s.acceptDone
	s.mu.Unlock()

	_ = closeFD(fd)
	if done != nil {
		<-done
	}

	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		s.DestroyPeer(p.fd)
	}

	if s.pl != nil {
		_ = s.pl.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Service) acceptLoop(listenFD int) {
	defer close(s.acceptDone)
	for {
		fd, addr, err := acceptTCP(listenFD)
		if err != nil {
			s.mu.Lock()
			stillRunning := s.started
			s.mu.Unlock()
			if !stillRunning {
				return // listen socket closed by Stop: normal termination
			}
			s.log.Warnf("accept error: %v", err)
			continue
		}

		if _, err := s.CreatePeer(fd, addr); err != nil {
			s.log.Warnf("refusing connection from %s: %v", addr, err)
			_ = closeFD(fd)
		}
	}
}

// CreatePeer admits a newly accepted connection: enforces
// MaxConnections, asks the balancer for a node, inserts the peer into
// the table, and registers it with the poller for Read events. It
// returns an error when the service is at capacity or has no
// associated nodes; the caller is responsible for closing fd in that
// case.
func (s *Service) CreatePeer(fd int, addr string) (*Peer, error) {
	s.mu.Lock()
	if len(s.peers) >= s.cfg.MaxConnections {
		s.mu.Unlock()
		return nil, errs.New(errs.CodeInvalidInput, "service: at max connections")
	}
	s.mu.Unlock()

	n, ok := s.bal.GetNext(true)
	if !ok {
		return nil, errs.ErrNoNodes
	}

	var sess *session.Session
	if s.cfg.SessionTimeout > 0 {
		sess = s.sessions.Bind(addr, n, s.cfg.SessionTimeout)
		if sess != nil {
			n = sess.Node()
		}
	}

	p := &Peer{fd: fd, addr: addr, node: n, session: sess}

	s.mu.Lock()
	if len(s.peers) >= s.cfg.MaxConnections {
		s.mu.Unlock()
		s.bal.Release(n)
		return nil, errs.New(errs.CodeInvalidInput, "service: at max connections")
	}
	s.peers[fd] = p
	s.mu.Unlock()

	if err := s.pl.Add(uintptr(fd), poller.EventRead); err != nil {
		s.mu.Lock()
		delete(s.peers, fd)
		s.mu.Unlock()
		s.bal.Release(n)
		return nil, err
	}

	return p, nil
}

// DestroyPeer removes fd from the peer table and the poller, releases
// its balancer credit, and closes the socket. A no-op if fd is not a
// known peer (tolerates racy double-teardown).
func (s *Service) DestroyPeer(fd int) {
	s.mu.Lock()
	p, ok := s.peers[fd]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.peers, fd)
	s.mu.Unlock()

	_ = s.pl.Remove(uintptr(fd))
	s.bal.Release(p.node)
	_ = closeFD(fd)
}

// onReadiness is the poller callback, invoked on a worker goroutine,
// possibly concurrently with other workers handling other peers.
func (s *Service) onReadiness(readReady, writeReady []uintptr) {
	// Only Read is ever registered today; tolerate a non-empty write
	// vector without acting on it, per spec.
	_ = writeReady

	for _, h := range readReady {
		fd := int(h)

		s.mu.Lock()
		p, ok := s.peers[fd]
		s.mu.Unlock()
		if !ok {
			continue // racy teardown: already destroyed
		}

		buf, err := s.pool.Poll(1 * time.Second)
		if err != nil || buf == nil {
			continue // pool exhausted this round; socket will re-fire
		}

		n, wouldBlock, err := recvInto(fd, buf.Data())
		switch {
		case err != nil:
			_ = s.pool.Return(buf)
			s.DestroyPeer(fd)
		case wouldBlock:
			_ = s.pool.Return(buf)
		case n == 0:
			_ = s.pool.Return(buf)
			s.DestroyPeer(fd)
		default:
			// Bytes are available to forward to p.Node() here; the
			// reference implementation stops at this point, and so
			// does this one (spec.md section 4.4). A future transport
			// layer drains buf.Data()[:n] to p.Node()'s connection.
			s.log.Infof("peer %s: %d bytes ready for node %s", p.Addr(), n, p.Node().Name())
			_ = s.pool.Return(buf)
		}
	}
}
