// Package bufferpool implements a fixed-size-node memory pool with a
// main queue, a reserve queue, and a dedicated replenishment goroutine
// that keeps the reserve populated ahead of demand. It is the Go
// generics-based generalization of the teacher's channel-behind-mutex
// pool (pool/base_bufferpool.go), restructured around the two-queue,
// background-refill design of the original MemoryPool.
package bufferpool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/doforward/internal/errs"
)

// Infinite, passed as the timeout to Poll, waits with no deadline.
const Infinite time.Duration = -1

const defaultBatch = 10

// Pool is a generic, thread-safe pool of fixed-size Buffer[T] nodes.
type Pool[T any] struct {
	size          int
	preallocation int
	max           int
	reserveTarget int
	batch         int

	mainMu sync.Mutex
	main   []*Buffer[T]

	reserveMu sync.Mutex
	reserve   []*Buffer[T]

	outstanding int64 // atomic

	allocSignal chan struct{}

	refillMu  sync.Mutex
	refillGen chan struct{}

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New constructs a Pool. size and preallocation must be > 0; max is
// raised to preallocation if smaller; batch defaults to 10 and is
// clamped to max-preallocation.
func New[T any](size, preallocation, max, reserveTarget, batch int) (*Pool[T], error) {
	if size == 0 {
		return nil, errs.New(errs.CodeInvalidInput, "buffer pool: size must be > 0")
	}
	if preallocation == 0 {
		return nil, errs.New(errs.CodeInvalidInput, "buffer pool: preallocation must be > 0")
	}
	if max < preallocation {
		max = preallocation
	}
	if batch <= 0 {
		batch = defaultBatch
	}
	if headroom := max - preallocation; batch > headroom {
		batch = headroom
	}
	if reserveTarget < 0 {
		reserveTarget = 0
	}

	p := &Pool[T]{
		size:          size,
		preallocation: preallocation,
		max:           max,
		reserveTarget: reserveTarget,
		batch:         batch,
		allocSignal:   make(chan struct{}, 1),
		refillGen:     make(chan struct{}),
		closing:       make(chan struct{}),
	}

	p.main = make([]*Buffer[T], 0, preallocation)
	for i := 0; i < preallocation; i++ {
		p.main = append(p.main, newBuffer[T](size))
	}
	p.reserve = make([]*Buffer[T], 0, reserveTarget)
	for i := 0; i < reserveTarget; i++ {
		p.reserve = append(p.reserve, newBuffer[T](size))
	}

	p.wg.Add(1)
	go p.allocLoop()

	return p, nil
}

// Poll asks for one buffer, waiting up to timeout (Infinite to wait
// forever, 0 to return immediately). Returns nil, nil when the timeout
// elapses with nothing available.
func (p *Pool[T]) Poll(timeout time.Duration) (*Buffer[T], error) {
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		if buf := p.popMain(); buf != nil {
			atomic.AddInt64(&p.outstanding, 1)
			return buf, nil
		}

		p.signalAlloc()

		if buf := p.popReserve(); buf != nil {
			atomic.AddInt64(&p.outstanding, 1)
			return buf, nil
		}

		if timeout == 0 {
			return nil, nil
		}

		waitCh := p.currentRefillSignal()

		if !hasDeadline {
			select {
			case <-waitCh:
			case <-p.closing:
				return nil, errs.ErrPoolClosed
			}
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-waitCh:
			timer.Stop()
		case <-timer.C:
			return nil, nil
		case <-p.closing:
			timer.Stop()
			return nil, errs.ErrPoolClosed
		}
	}
}

// Return releases a buffer back to the pool. A nil buffer is a
// programming error.
func (p *Pool[T]) Return(buf *Buffer[T]) error {
	if buf == nil {
		return errs.ErrNilBuffer
	}
	atomic.AddInt64(&p.outstanding, -1)

	p.reserveMu.Lock()
	if len(p.reserve) < p.reserveTarget {
		p.reserve = append(p.reserve, buf)
		p.reserveMu.Unlock()
		p.broadcastRefill()
		return nil
	}
	p.reserveMu.Unlock()

	p.mainMu.Lock()
	if len(p.main) < p.max {
		p.main = append(p.main, buf)
		p.mainMu.Unlock()
		p.broadcastRefill()
		return nil
	}
	p.mainMu.Unlock()

	// Neither queue has room: the buffer is destroyed (dropped for the
	// GC to reclaim). This is the only path that reduces live-buffer
	// count.
	return nil
}

// Close shuts down the allocation goroutine and joins it. Outstanding
// buffers already on loan remain valid and Return still accepts them;
// no further refills happen, and a Poll that would wait returns
// ErrPoolClosed.
func (p *Pool[T]) Close() {
	p.closeOnce.Do(func() {
		close(p.closing)
		p.wg.Wait()
	})
}

// Stats is a point-in-time snapshot, used by tests and the testable
// invariant main.len + reserve.len + outstanding <= max + reserve.
type Stats struct {
	MainLen     int
	ReserveLen  int
	Outstanding int64
}

func (p *Pool[T]) Stats() Stats {
	p.mainMu.Lock()
	mainLen := len(p.main)
	p.mainMu.Unlock()
	p.reserveMu.Lock()
	reserveLen := len(p.reserve)
	p.reserveMu.Unlock()
	return Stats{
		MainLen:     mainLen,
		ReserveLen:  reserveLen,
		Outstanding: atomic.LoadInt64(&p.outstanding),
	}
}

func (p *Pool[T]) popMain() *Buffer[T] {
	p.mainMu.Lock()
	defer p.mainMu.Unlock()
	if len(p.main) == 0 {
		return nil
	}
	n := len(p.main) - 1
	buf := p.main[n]
	p.main = p.main[:n]
	return buf
}

func (p *Pool[T]) popReserve() *Buffer[T] {
	p.reserveMu.Lock()
	defer p.reserveMu.Unlock()
	if len(p.reserve) == 0 {
		return nil
	}
	n := len(p.reserve) - 1
	buf := p.reserve[n]
	p.reserve = p.reserve[:n]
	return buf
}

// signalAlloc is a one-shot, non-blocking wakeup of the allocation
// goroutine; a pending signal is not duplicated.
func (p *Pool[T]) signalAlloc() {
	select {
	case p.allocSignal <- struct{}{}:
	default:
	}
}

func (p *Pool[T]) currentRefillSignal() chan struct{} {
	p.refillMu.Lock()
	ch := p.refillGen
	p.refillMu.Unlock()
	return ch
}

// broadcastRefill wakes every Poll call blocked on the refill signal
// by closing the current generation channel and swapping in a fresh
// one. Called both by Return (a buffer became available) and by
// allocLoop (new buffers were minted).
func (p *Pool[T]) broadcastRefill() {
	p.refillMu.Lock()
	close(p.refillGen)
	p.refillGen = make(chan struct{})
	p.refillMu.Unlock()
}

// allocLoop is the dedicated replenishment goroutine: it blocks on
// allocSignal, and on wakeup tops up the reserve (up to batch) before
// topping up main (with whatever batch remains), broadcasting refill
// completion only if it actually minted new buffers.
func (p *Pool[T]) allocLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.allocSignal:
		case <-p.closing:
			return
		}

		select {
		case <-p.closing:
			return
		default:
		}

		p.mainMu.Lock()
		p.reserveMu.Lock()

		reserveAlloc := p.reserveTarget - len(p.reserve)
		if reserveAlloc > p.batch {
			reserveAlloc = p.batch
		}
		if reserveAlloc < 0 {
			reserveAlloc = 0
		}

		remaining := p.batch - reserveAlloc
		mainAlloc := p.preallocation - len(p.main)
		if mainAlloc > remaining {
			mainAlloc = remaining
		}
		if mainAlloc < 0 {
			mainAlloc = 0
		}

		for i := 0; i < reserveAlloc; i++ {
			p.reserve = append(p.reserve, newBuffer[T](p.size))
		}
		for i := 0; i < mainAlloc; i++ {
			p.main = append(p.main, newBuffer[T](p.size))
		}

		p.reserveMu.Unlock()
		p.mainMu.Unlock()

		if reserveAlloc > 0 || mainAlloc > 0 {
			p.broadcastRefill()
		}
	}
}
