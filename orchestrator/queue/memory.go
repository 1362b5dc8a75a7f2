package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

type jobHeap []*Job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].RunAt.Before(h[j].RunAt) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)        { *h = append(*h, x.(*Job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// MemoryQueue is an in-process min-heap ordered by RunAt. Jobs are lost on
// restart.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs jobHeap
	wake chan struct{}
	now  func() time.Time
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{wake: make(chan struct{}), now: time.Now}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(_ context.Context, job *Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.RunAt = q.now().Add(delay)
	heap.Push(&q.jobs, job)

	// wake every waiter; each re-checks the head
	close(q.wake)
	q.wake = make(chan struct{})
	return nil
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		wake := q.wake
		var wait time.Duration = -1
		if len(q.jobs) > 0 {
			head := q.jobs[0]
			wait = head.RunAt.Sub(q.now())
			if wait <= 0 {
				heap.Pop(&q.jobs)
				q.mu.Unlock()
				return head, nil
			}
		}
		q.mu.Unlock()

		var (
			timer *time.Timer
			due   <-chan time.Time
		)
		if wait > 0 {
			timer = time.NewTimer(wait)
			due = timer.C
		}
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil, ctx.Err()
		case <-wake:
		case <-due:
		}
		stopTimer(timer)
	}
}

// Ack is a no-op; jobs leave the heap when dequeued.
func (q *MemoryQueue) Ack(context.Context, *Job) error { return nil }

// Len implements Queue.
func (q *MemoryQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
