// Package tasks runs background jobs on a fixed worker pool, highest
// priority first.
package tasks

import (
	"container/heap"

	"github.com/alitto/pond/v2"
	"github.com/sasha-s/go-deadlock"
)

// Priority orders jobs. Lower Class runs first, then lower WithinClass.
type Priority struct {
	Class       uint8
	WithinClass float32
}

func (p Priority) Less(o Priority) bool {
	if p.Class != o.Class {
		return p.Class < o.Class
	}
	return p.WithinClass < o.WithinClass
}

// Handle identifies a submitted job. The zero Handle is never issued.
type Handle uint64

type job struct {
	handle Handle
	prio   Priority
	seq    uint64
	run    func()
	index  int
}

type jobQueue []*job

func (q jobQueue) Len() int { return len(q) }
func (q jobQueue) Less(i, j int) bool {
	if q[i].prio != q[j].prio {
		return q[i].prio.Less(q[j].prio)
	}
	return q[i].seq < q[j].seq
}
func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *jobQueue) Push(x any) {
	j := x.(*job)
	j.index = len(*q)
	*q = append(*q, j)
}
func (q *jobQueue) Pop() any {
	old := *q
	j := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	j.index = -1
	return j
}

// Executor keeps submitted jobs in a priority queue. Every submission hands
// the pool one token task, and each token runs whichever job is most urgent
// when a worker picks it up, so the pool's own FIFO order never decides.
type Executor struct {
	pool pond.Pool

	mu       deadlock.Mutex
	queue    jobQueue
	byHandle map[Handle]*job
	last     Handle
	seq      uint64
	closed   bool
}

func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = 1
	}
	return &Executor{
		pool:     pond.NewPool(workers),
		byHandle: make(map[Handle]*job),
	}
}

// Submit queues fn. It returns the zero Handle after Close.
func (e *Executor) Submit(p Priority, fn func()) Handle {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0
	}
	e.last++
	e.seq++
	j := &job{handle: e.last, prio: p, seq: e.seq, run: fn}
	heap.Push(&e.queue, j)
	e.byHandle[j.handle] = j
	e.mu.Unlock()

	e.pool.Submit(e.runNext)
	return j.handle
}

func (e *Executor) runNext() {
	e.mu.Lock()
	if e.queue.Len() == 0 {
		e.mu.Unlock()
		return
	}
	j := heap.Pop(&e.queue).(*job)
	delete(e.byHandle, j.handle)
	e.mu.Unlock()

	j.run()
}

// CancelIfPending removes a job that has not started yet. It reports false
// when the job already started, finished or was never issued.
func (e *Executor) CancelIfPending(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, ok := e.byHandle[h]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, j.index)
	delete(e.byHandle, h)
	return true
}

// Pending returns the number of queued jobs that have not started.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// Close drops queued jobs and waits for running ones.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	for _, j := range e.queue {
		j.index = -1
	}
	e.queue = nil
	e.byHandle = make(map[Handle]*job)
	e.mu.Unlock()

	e.pool.StopAndWait()
}
