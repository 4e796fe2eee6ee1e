package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quire/internal/logging"
	"quire/internal/taskqueue"
)

// retryDelay bounds how fast a worker loop spins when the queue misbehaves.
const retryDelay = time.Second

// Pool runs a fixed number of worker loops against a task queue.
type Pool struct {
	queue  taskqueue.Queue
	count  int
	logger *slog.Logger

	// permits caps concurrent executions independently of the queue's
	// admission bound.
	permits chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool constructs a pool of count workers draining queue.
func NewPool(queue taskqueue.Queue, count int, logger *slog.Logger) *Pool {
	if count <= 0 {
		count = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		queue:   queue,
		count:   count,
		logger:  logging.NewComponentLogger(logger, "worker-pool"),
		permits: make(chan struct{}, count),
	}
}

// Start launches the worker loops. It returns an error when the pool is
// already running.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("worker pool already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(p.count)
	p.mu.Unlock()

	for i := 0; i < p.count; i++ {
		go p.workerLoop(runCtx, i+1)
	}

	p.logger.Info("worker pool started", logging.Int("workers", p.count))
	return nil
}

// Stop signals the loops to exit and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// InFlight reports how many tasks are currently executing.
func (p *Pool) InFlight() int {
	return len(p.permits)
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int(logging.FieldWorkerID, workerID))

	for {
		select {
		case <-ctx.Done():
			return
		case p.permits <- struct{}{}:
		}

		task, ok := p.queue.Dequeue(ctx)
		if !ok {
			<-p.permits
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
				continue
			}
		}

		p.runTask(ctx, logger, task)
		<-p.permits
	}
}

// runTask executes a single task. Failures are logged and swallowed so the
// loop keeps serving subsequent tasks.
func (p *Pool) runTask(ctx context.Context, logger *slog.Logger, task *taskqueue.Task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("task panicked",
				logging.String(logging.FieldTaskID, task.ID),
				logging.Any("panic", recovered),
				logging.String(logging.FieldEventType, "worker_task_panic"))
		}
	}()

	started := time.Now()
	if err := task.Run(ctx); err != nil {
		logger.Warn("task failed",
			logging.String(logging.FieldTaskID, task.ID),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "worker_task_failed"))
		return
	}
	logger.Debug("task completed",
		logging.String(logging.FieldTaskID, task.ID),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "worker_task_completed"))
}
