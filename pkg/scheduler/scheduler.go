// Package scheduler implements the revalidation priority queue (spec §4.4):
// a min-heap of pending validator runs with a per-validator dedup index, the
// same map+index combo the teacher's ConditionCache applies to an LRU list
// (pkg/engine/condition_cache.go) applied here to a heap instead.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// RevalidationTask describes one pending validator run.
type RevalidationTask struct {
	ValidatorID string
	Priority    int
	QueuedAt    time.Time
	TriggeredBy string
	Reason      string

	index int // heap.Interface bookkeeping
}

// taskHeap implements container/heap.Interface. Lower Priority runs first;
// ties break by earlier QueuedAt.
type taskHeap []*RevalidationTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].QueuedAt.Before(h[j].QueuedAt)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	t := x.(*RevalidationTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// PostRunObserver is notified after an executor callback runs for a popped
// task, with the error it returned (nil on success).
type PostRunObserver func(RevalidationTask, error)

// Scheduler is a priority queue of RevalidationTask enforcing at most one
// pending task per validator ID. Safe for concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	heap      taskHeap
	pending   map[string]*RevalidationTask
	processed int
	observers []PostRunObserver
}

// New constructs an empty Scheduler.
func New() *Scheduler {
	s := &Scheduler{pending: make(map[string]*RevalidationTask)}
	heap.Init(&s.heap)
	return s
}

// Push enqueues a revalidation task. If validatorID already has a pending
// task, Push is a no-op and returns false.
func (s *Scheduler) Push(task RevalidationTask) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[task.ValidatorID]; exists {
		return false
	}
	if task.QueuedAt.IsZero() {
		task.QueuedAt = time.Now().UTC()
	}
	t := task
	heap.Push(&s.heap, &t)
	s.pending[task.ValidatorID] = &t
	return true
}

// Pop removes and returns the highest-priority task, or false if the queue
// is empty.
func (s *Scheduler) Pop() (RevalidationTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heap.Len() == 0 {
		return RevalidationTask{}, false
	}
	t := heap.Pop(&s.heap).(*RevalidationTask)
	delete(s.pending, t.ValidatorID)
	return *t, true
}

// PeekNext returns the highest-priority task without removing it.
func (s *Scheduler) PeekNext() (RevalidationTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heap.Len() == 0 {
		return RevalidationTask{}, false
	}
	return *s.heap[0], true
}

// GetPending returns every currently-queued task; order is unspecified.
func (s *Scheduler) GetPending() []RevalidationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RevalidationTask, 0, len(s.heap))
	for _, t := range s.heap {
		out = append(out, *t)
	}
	return out
}

// ClearQueue discards every pending task.
func (s *Scheduler) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heap = s.heap[:0]
	s.pending = make(map[string]*RevalidationTask)
}

// RemoveValidator cancels validatorID's pending task, if any, returning
// whether one was found.
func (s *Scheduler) RemoveValidator(validatorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[validatorID]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, t.index)
	delete(s.pending, validatorID)
	return true
}

// OnPostRun registers an observer invoked after every executor run.
func (s *Scheduler) OnPostRun(obs PostRunObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Processed returns how many tasks RunNext has popped and executed so far.
func (s *Scheduler) Processed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

// Executor runs the named validator. It is supplied by the caller; the
// scheduler has no notion of what a validator does.
type Executor func(ctx context.Context, validatorID string) error

// RunNext pops the highest-priority task and invokes exec on it, reporting
// to any registered PostRunObservers. Returns false if the queue was empty.
func (s *Scheduler) RunNext(ctx context.Context, exec Executor) (bool, error) {
	task, ok := s.Pop()
	if !ok {
		return false, nil
	}

	err := exec(ctx, task.ValidatorID)

	s.mu.Lock()
	s.processed++
	observers := append([]PostRunObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, obs := range observers {
		obs(task, err)
	}
	return true, err
}
