package poller

import (
	"sync"

	"github.com/momentics/doforward/internal/errs"
)

// Poller shards file descriptors across a small fleet of worker
// goroutines so that no single wait syscall scans more than
// workerSize descriptors. The socket->worker map is authoritative: no
// socket is ever registered with two workers.
type Poller struct {
	callback Callback

	maxSockets int
	workerSize int
	minWorkers int
	maxWorkers int

	mu          sync.Mutex
	workers     []*worker
	socketOwner map[uintptr]*worker
	closed      bool
}

// New constructs a Poller. maxSockets and workerSize must be > 0.
// workerSize is clamped to FD_SETSIZE and, if minWorkers requires more
// potential workers than that would allow, shrunk further so that
// maxSockets/workerSize >= minWorkers.
func New(maxSockets, workerSize, minWorkers int, cb Callback) (*Poller, error) {
	if maxSockets == 0 {
		return nil, errs.New(errs.CodeInvalidInput, "poller: maxSockets must be > 0")
	}
	if workerSize == 0 {
		return nil, errs.New(errs.CodeInvalidInput, "poller: workerSize must be > 0")
	}
	if cb == nil {
		return nil, errs.ErrNilBuffer
	}

	effective := workerSize
	if effective > fdSetSize {
		effective = fdSetSize
	}
	if minWorkers > 0 {
		if ceiling := maxSockets / minWorkers; ceiling > 0 && effective > ceiling {
			effective = ceiling
		}
	}
	if effective < 1 {
		effective = 1
	}

	maxWorkers := (maxSockets + effective - 1) / effective
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	return &Poller{
		callback:    cb,
		maxSockets:  maxSockets,
		workerSize:  effective,
		minWorkers:  minWorkers,
		maxWorkers:  maxWorkers,
		socketOwner: make(map[uintptr]*worker),
	}, nil
}

// Add registers fd for the given events, idempotent on duplicates.
// It picks the least-loaded existing worker, or spawns a new one if
// none exists yet or the capacity curve is exceeded.
func (p *Poller) Add(fd uintptr, events Events) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errs.ErrPollerClosed
	}

	if w, ok := p.socketOwner[fd]; ok {
		p.mu.Unlock()
		return w.add(fd, events)
	}

	if len(p.socketOwner) >= p.maxSockets {
		p.mu.Unlock()
		return errs.New(errs.CodeInvalidInput, "poller: at capacity")
	}

	target, err := p.pickWorkerLocked(len(p.socketOwner) + 1)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.socketOwner[fd] = target
	p.mu.Unlock()

	return target.add(fd, events)
}

// Remove drops fd from the poller, freeing its slot.
func (p *Poller) Remove(fd uintptr) error {
	p.mu.Lock()
	w, ok := p.socketOwner[fd]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.socketOwner, fd)
	p.mu.Unlock()

	return w.remove(fd)
}

// Close alerts and joins every worker. In-flight callbacks complete
// before Close returns.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	workers := p.workers
	p.workers = nil
	p.socketOwner = make(map[uintptr]*worker)
	p.mu.Unlock()

	for _, w := range workers {
		w.stop()
	}
	return nil
}

// WorkerCount reports the current fleet size, used by tests and the
// capacity-curve invariant.
func (p *Poller) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// pickWorkerLocked must be called with p.mu held.
func (p *Poller) pickWorkerLocked(socketCountAfterAdd int) (*worker, error) {
	noWorkerYet := len(p.workers) == 0
	canGrow := len(p.workers) < p.maxWorkers
	if noWorkerYet || (canGrow && p.shouldSpawnLocked(socketCountAfterAdd)) {
		w, err := newWorker(len(p.workers), p.callback)
		if err != nil {
			if noWorkerYet {
				return nil, err
			}
			return p.leastLoadedLocked(), nil
		}
		p.workers = append(p.workers, w)
		return w, nil
	}
	return p.leastLoadedLocked(), nil
}

// shouldSpawnLocked implements the capacity curve:
// socketCount > workerCount^2 * (workerSize / maxWorkers).
// Preserved verbatim from the source as a tuning knob, not altered.
func (p *Poller) shouldSpawnLocked(socketCount int) bool {
	workerCount := len(p.workers)
	if workerCount == 0 {
		return true
	}
	threshold := float64(workerCount*workerCount) * (float64(p.workerSize) / float64(p.maxWorkers))
	return float64(socketCount) > threshold
}

// leastLoadedLocked scans the (small, maxWorkers-bounded) worker
// fleet for the lowest fd count. This is a deliberate simplification
// of the source's load-keyed multimap: with the fleet capped at
// maxWorkers, a linear scan is cheaper than maintaining an ordered
// index and never shows up in profiles at this scale.
func (p *Poller) leastLoadedLocked() *worker {
	best := p.workers[0]
	bestLoad := best.Load()
	for _, w := range p.workers[1:] {
		if l := w.Load(); l < bestLoad {
			best = w
			bestLoad = l
		}
	}
	return best
}
