package service

import (
	"time"

	"github.com/momentics/doforward/balancer"
	"github.com/momentics/doforward/node"
)

// Config configures a Service. Buffer-pool sizing follows bufferpool.New's
// parameters; SessionTimeout of 0 disables session affinity.
type Config struct {
	Name        string
	Host        string
	Port        uint16
	Transport   node.Transport
	Application node.Application

	Algorithm      balancer.Algorithm
	SessionTimeout time.Duration
	MaxConnections int

	BufferSize       int
	BufferPrealloc   int
	BufferMax        int
	BufferReserve    int
	BufferAllocBatch int
	PollerWorkerSize int
	PollerMinWorkers int
	RecvTimeout      time.Duration
}

// DefaultConfig mirrors the reference implementation's service
// defaults (spec.md section 6): 256 max connections, round-robin, no
// session affinity.
func DefaultConfig() Config {
	return Config{
		Algorithm:        balancer.RoundRobinAlgorithm,
		SessionTimeout:   0,
		MaxConnections:   256,
		BufferSize:       64 * 1024,
		BufferPrealloc:   16,
		BufferMax:        256,
		BufferReserve:    8,
		BufferAllocBatch: 10,
		PollerWorkerSize: 64,
		PollerMinWorkers: 4,
		RecvTimeout:      time.Second,
	}
}
