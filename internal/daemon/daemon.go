package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"quire/internal/api"
	"quire/internal/config"
	"quire/internal/logging"
	"quire/internal/processing"
	"quire/internal/queue"
	"quire/internal/taskqueue"
	"quire/internal/workers"
	"quire/internal/workflow"
)

// Daemon coordinates the background scheduler services and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store

	taskQueue taskqueue.Queue
	pool      *workers.Pool
	poller    *workflow.Poller
	reclaimer *workflow.Reclaimer
	hub       *statusHub
	actions   *api.QueueActions
	queueSvc  *api.QueueService
	apiServer *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, dispatcher *processing.Dispatcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config, store, and dispatcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	tq, err := taskqueue.New(cfg.Scheduler.TaskQueuePolicy, cfg.Scheduler.TaskQueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("build task queue: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "quired.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		taskQueue: tq,
		pool:      workers.NewPool(tq, cfg.Scheduler.WorkerCount, logger),
		reclaimer: workflow.NewReclaimer(cfg, store, logger),
		hub:       newStatusHub(logger),
		actions:   api.NewQueueActions(store, cfg),
		queueSvc:  api.NewQueueService(store),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.poller = workflow.NewPoller(cfg, store, dispatcher, logger,
		workflow.WithOnUpdate(func(workflow.StatusSummary) {
			d.broadcastStatus()
		}))

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = server
	return d, nil
}

// Start acquires the daemon lock, recovers records orphaned by a prior
// crash, and launches every scheduler service.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another quire daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Crash recovery before anything can claim new work.
	if reset, failed, err := d.reclaimer.Sweep(d.ctx); err != nil {
		d.logger.Warn("startup sweep failed", logging.Error(err))
	} else if reset > 0 || failed > 0 {
		d.logger.Info("startup sweep recovered records",
			logging.Int("reset", reset),
			logging.Int("failed", failed))
	}

	if err := d.pool.Start(d.ctx); err != nil {
		return d.abortStart(fmt.Errorf("start worker pool: %w", err))
	}
	if err := d.poller.Start(d.ctx); err != nil {
		d.pool.Stop()
		return d.abortStart(fmt.Errorf("start poller: %w", err))
	}
	if err := d.reclaimer.Start(d.ctx); err != nil {
		d.poller.Stop()
		d.pool.Stop()
		return d.abortStart(fmt.Errorf("start reclaimer: %w", err))
	}
	if d.apiServer != nil {
		if err := d.apiServer.start(d.ctx); err != nil {
			d.reclaimer.Stop()
			d.poller.Stop()
			d.pool.Stop()
			return d.abortStart(err)
		}
	}

	d.running.Store(true)
	d.logger.Info("quire daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) abortStart(err error) error {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
	return err
}

// Stop shuts the services down in reverse order and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.apiServer != nil {
		d.apiServer.stop()
	}
	d.hub.close()
	d.reclaimer.Stop()
	d.poller.Stop()
	d.pool.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("quire daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address, or empty when the server is off.
func (d *Daemon) Addr() string {
	if d.apiServer == nil {
		return ""
	}
	return d.apiServer.addr()
}

// Enqueue admits new durable work through the ephemeral task queue, so HTTP
// producers see the same bounded-admission backpressure as in-process ones.
// The call returns once a worker has persisted the record.
func (d *Daemon) Enqueue(ctx context.Context, req api.EnqueueRequest) (*api.QueueRecord, error) {
	type outcome struct {
		record *api.QueueRecord
		err    error
	}
	results := make(chan outcome, 1)

	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	} else if d.cfg != nil {
		priority = d.cfg.Scheduler.DefaultPriority
	}

	task := &taskqueue.Task{
		Priority: priority,
		Run: func(taskCtx context.Context) error {
			record, err := d.actions.Enqueue(taskCtx, req)
			results <- outcome{record: record, err: err}
			if err != nil {
				return err
			}
			d.broadcastStatus()
			return nil
		},
	}

	if err := d.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("admit enqueue task: %w", err)
	}

	select {
	case result := <-results:
		return result.record, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns the current scheduler snapshot.
func (d *Daemon) Status(ctx context.Context) (api.SchedulerStatus, error) {
	stats, err := d.queueSvc.Stats(ctx)
	if err != nil {
		return api.SchedulerStatus{}, err
	}
	summary := d.poller.Status()
	return api.SchedulerStatus{
		Running:      d.running.Load(),
		PollerState:  string(summary.State),
		ProcessorID:  summary.ProcessorID,
		LastRecordID: summary.LastRecordID,
		LastError:    summary.LastError,
		QueueDepth:   d.taskQueue.Len(),
		InFlight:     d.pool.InFlight(),
		Stats:        stats,
	}, nil
}

// Sweep runs an on-demand stuck-record sweep.
func (d *Daemon) Sweep(ctx context.Context) (int, int, error) {
	return d.reclaimer.Sweep(ctx)
}

// TaskStatus reports the tracked status of an ephemeral task.
func (d *Daemon) TaskStatus(id string) (taskqueue.Status, bool) {
	return d.taskQueue.TryGetStatus(id)
}

func (d *Daemon) broadcastStatus() {
	if d.hub.clientCount() == 0 {
		return
	}
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	status, err := d.Status(ctx)
	if err != nil {
		d.logger.Debug("status broadcast skipped", logging.Error(err))
		return
	}
	d.hub.broadcast(status)
}
