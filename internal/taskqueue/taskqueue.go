package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of an ephemeral task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// PolicyFIFO and PolicyPriority select the dequeue strategy.
const (
	PolicyFIFO     = "fifo"
	PolicyPriority = "priority"
)

// ErrNilTask indicates an enqueue call without an executable task.
var ErrNilTask = errors.New("task and its run function are required")

// Task is an in-process unit of work. The queue assigns an ID when absent
// and wraps Run so the status table reflects the execution outcome.
type Task struct {
	ID         string
	Priority   int
	EnqueuedAt time.Time
	Run        func(ctx context.Context) error
}

// Queue admits tasks with backpressure and hands them to workers in policy
// order.
type Queue interface {
	// Enqueue admits a task, blocking while the queue is at capacity.
	Enqueue(ctx context.Context, task *Task) error
	// Dequeue removes and returns the next task in policy order, blocking
	// until one is available. It returns ok=false when the context is
	// cancelled with nothing to hand out.
	Dequeue(ctx context.Context) (*Task, bool)
	// Len reports how many tasks are currently admitted and not yet
	// dequeued.
	Len() int
	// TryGetStatus reports the tracked status for a task id. Unknown ids
	// return ok=false, never an error.
	TryGetStatus(id string) (Status, bool)
	// SetStatus overrides the tracked status for a task id.
	SetStatus(id string, status Status)
}

// New constructs a queue for the given policy and capacity.
func New(policy string, capacity int) (Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", capacity)
	}
	switch policy {
	case PolicyFIFO:
		return newFIFOQueue(capacity), nil
	case PolicyPriority:
		return newPriorityQueue(capacity), nil
	default:
		return nil, fmt.Errorf("unknown queue policy %q", policy)
	}
}

// statusTable tracks task statuses with lock-free reads.
type statusTable struct {
	statuses sync.Map
}

func (t *statusTable) get(id string) (Status, bool) {
	value, ok := t.statuses.Load(id)
	if !ok {
		return "", false
	}
	return value.(Status), true
}

func (t *statusTable) set(id string, status Status) {
	t.statuses.Store(id, status)
}

// admit validates a task, assigns identity and admission metadata, and wraps
// its run function so execution outcomes land in the status table.
func (t *statusTable) admit(task *Task) error {
	if task == nil || task.Run == nil {
		return ErrNilTask
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	run := task.Run
	id := task.ID
	task.Run = func(ctx context.Context) (err error) {
		t.set(id, StatusProcessing)
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("task %s panicked: %v", id, recovered)
				t.set(id, StatusFailed)
				return
			}
			switch {
			case err == nil:
				t.set(id, StatusCompleted)
			case errors.Is(err, context.Canceled):
				t.set(id, StatusCancelled)
			default:
				t.set(id, StatusFailed)
			}
		}()
		return run(ctx)
	}

	t.set(id, StatusQueued)
	return nil
}
