package taskqueue

import "context"

// fifoQueue serves tasks in insertion order, ignoring priority. The buffered
// channel provides both the capacity bound and the blocking semantics.
type fifoQueue struct {
	statusTable
	tasks chan *Task
}

func newFIFOQueue(capacity int) *fifoQueue {
	return &fifoQueue{tasks: make(chan *Task, capacity)}
}

func (q *fifoQueue) Enqueue(ctx context.Context, task *Task) error {
	if err := q.admit(task); err != nil {
		return err
	}
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *fifoQueue) Dequeue(ctx context.Context) (*Task, bool) {
	select {
	case task := <-q.tasks:
		return task, true
	case <-ctx.Done():
		// Drain anything already admitted before reporting empty.
		select {
		case task := <-q.tasks:
			return task, true
		default:
			return nil, false
		}
	}
}

func (q *fifoQueue) Len() int {
	return len(q.tasks)
}

func (q *fifoQueue) TryGetStatus(id string) (Status, bool) {
	return q.get(id)
}

func (q *fifoQueue) SetStatus(id string, status Status) {
	q.set(id, status)
}
