package taskqueue

import (
	"context"
	"sort"
	"sync"
)

// priorityQueue groups tasks into per-priority FIFO buckets and always
// drains the numerically highest bucket first. Emptied buckets are removed
// so dequeue cost tracks the number of distinct active priorities. Equal
// priorities keep insertion order; a steady stream of high-priority tasks
// can starve lower ones indefinitely.
type priorityQueue struct {
	statusTable

	mu         sync.Mutex
	buckets    map[int][]*Task
	priorities []int // sorted descending

	slots chan struct{}
	ready chan struct{}
}

func newPriorityQueue(capacity int) *priorityQueue {
	return &priorityQueue{
		buckets: make(map[int][]*Task),
		slots:   make(chan struct{}, capacity),
		ready:   make(chan struct{}, capacity),
	}
}

func (q *priorityQueue) Enqueue(ctx context.Context, task *Task) error {
	if err := q.admit(task); err != nil {
		return err
	}

	// Acquire a capacity slot first so a full queue blocks the caller
	// without touching the buckets.
	select {
	case q.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	bucket, exists := q.buckets[task.Priority]
	q.buckets[task.Priority] = append(bucket, task)
	if !exists {
		q.insertPriority(task.Priority)
	}
	q.mu.Unlock()

	// The ready channel shares the slot capacity, so this send never blocks.
	q.ready <- struct{}{}
	return nil
}

func (q *priorityQueue) Dequeue(ctx context.Context) (*Task, bool) {
	select {
	case <-q.ready:
	case <-ctx.Done():
		select {
		case <-q.ready:
		default:
			return nil, false
		}
	}

	q.mu.Lock()
	task := q.popHighest()
	q.mu.Unlock()

	<-q.slots
	return task, true
}

func (q *priorityQueue) Len() int {
	return len(q.slots)
}

func (q *priorityQueue) TryGetStatus(id string) (Status, bool) {
	return q.get(id)
}

func (q *priorityQueue) SetStatus(id string, status Status) {
	q.set(id, status)
}

// popHighest removes the oldest task from the highest-priority bucket.
// Callers must hold mu and have consumed a ready token, so a task is
// guaranteed to exist.
func (q *priorityQueue) popHighest() *Task {
	priority := q.priorities[0]
	bucket := q.buckets[priority]
	task := bucket[0]
	if len(bucket) == 1 {
		delete(q.buckets, priority)
		q.priorities = q.priorities[1:]
	} else {
		q.buckets[priority] = bucket[1:]
	}
	return task
}

func (q *priorityQueue) insertPriority(priority int) {
	index := sort.Search(len(q.priorities), func(i int) bool {
		return q.priorities[i] < priority
	})
	q.priorities = append(q.priorities, 0)
	copy(q.priorities[index+1:], q.priorities[index:])
	q.priorities[index] = priority
}
