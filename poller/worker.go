package poller

import (
	"sync"
	"sync/atomic"
)

type workerState int32

const (
	stateIdle workerState = iota
	stateDispatching
	stateStopping
)

// worker manages one bounded subset of file descriptors, running an
// independent wait syscall on its own goroutine. Its read/write sets
// are guarded by mu; the wait loop snapshots nothing extra, since the
// backend itself is the source of truth for membership (unlike the
// C++ original, Go's epoll backend needs no worker-side copy of the
// interest sets to issue one wait call).
type worker struct {
	id       int
	be       backend
	callback Callback

	mu       sync.Mutex
	readSet  map[uintptr]struct{}
	writeSet map[uintptr]struct{}

	load  int64 // atomic: number of distinct fds owned
	state int32 // atomic workerState

	stopCh  chan struct{}
	stopped chan struct{}
}

func newWorker(id int, cb Callback) (*worker, error) {
	be, err := newBackend()
	if err != nil {
		return nil, err
	}
	w := &worker{
		id:       id,
		be:       be,
		callback: cb,
		readSet:  make(map[uintptr]struct{}),
		writeSet: make(map[uintptr]struct{}),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// add inserts fd into the worker's read and/or write set. Idempotent:
// re-adding the same fd with new events just updates its mask.
func (w *worker) add(fd uintptr, events Events) error {
	w.mu.Lock()
	_, hadRead := w.readSet[fd]
	_, hadWrite := w.writeSet[fd]
	wasNew := !hadRead && !hadWrite
	if events&EventRead != 0 {
		w.readSet[fd] = struct{}{}
	}
	if events&EventWrite != 0 {
		w.writeSet[fd] = struct{}{}
	}
	w.mu.Unlock()

	if err := w.be.add(fd, events); err != nil {
		return err
	}
	if wasNew {
		atomic.AddInt64(&w.load, 1)
	}
	return w.be.alert()
}

// remove drops fd from both sets.
func (w *worker) remove(fd uintptr) error {
	w.mu.Lock()
	_, hadRead := w.readSet[fd]
	_, hadWrite := w.writeSet[fd]
	delete(w.readSet, fd)
	delete(w.writeSet, fd)
	w.mu.Unlock()

	if err := w.be.remove(fd); err != nil {
		return err
	}
	if hadRead || hadWrite {
		atomic.AddInt64(&w.load, -1)
	}
	return w.be.alert()
}

// Load returns the worker's current fd count, used for least-loaded
// worker selection on Add.
func (w *worker) Load() int64 {
	return atomic.LoadInt64(&w.load)
}

func (w *worker) run() {
	defer close(w.stopped)
	defer w.be.close()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		read, write, err := w.be.wait()
		if err != nil {
			continue
		}

		select {
		case <-w.stopCh:
			return
		default:
		}

		if len(read) == 0 && len(write) == 0 {
			continue
		}

		atomic.StoreInt32(&w.state, int32(stateDispatching))
		w.dispatch(read, write)
		atomic.StoreInt32(&w.state, int32(stateIdle))
	}
}

// dispatch invokes the user callback exactly once for this batch,
// tolerating panics so one bad handler can't take the worker down.
func (w *worker) dispatch(read, write []uintptr) {
	defer func() { _ = recover() }()
	w.callback(read, write)
}

// stop alerts the worker out of its blocking wait and joins it.
func (w *worker) stop() {
	atomic.StoreInt32(&w.state, int32(stateStopping))
	close(w.stopCh)
	_ = w.be.alert()
	<-w.stopped
}
