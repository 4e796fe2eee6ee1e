package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quire/internal/config"
	"quire/internal/logging"
	"quire/internal/queue"
)

// Reclaimer recovers records claimed by a crashed or hung owner. Records
// with retries remaining go back to pending; exhausted ones are failed with
// a reclaim message.
type Reclaimer struct {
	store     *queue.Store
	logger    *slog.Logger
	threshold time.Duration
	interval  time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReclaimer constructs a reclaimer from the scheduler configuration.
func NewReclaimer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Reclaimer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reclaimer{
		store:     store,
		logger:    logging.NewComponentLogger(logger, "reclaimer"),
		threshold: time.Duration(cfg.Scheduler.StuckTimeoutMinutes) * time.Minute,
		interval:  time.Duration(cfg.Scheduler.ReclaimInterval) * time.Second,
	}
}

// Sweep finds stuck records and either resets or fails them. It returns how
// many records took each path.
func (r *Reclaimer) Sweep(ctx context.Context) (reset, failed int, err error) {
	cutoff := time.Now().UTC().Add(-r.threshold)
	stuck, err := r.store.FindStuck(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("find stuck records: %w", err)
	}

	for _, record := range stuck {
		if record.RetriesExhausted() {
			marked, err := r.store.MarkFailed(ctx, record.ID, queue.ReclaimReason)
			if err != nil {
				return reset, failed, fmt.Errorf("fail stuck record %d: %w", record.ID, err)
			}
			if marked {
				failed++
				r.logger.Warn("stuck record failed",
					logging.Int64(logging.FieldRecordID, record.ID),
					logging.String(logging.FieldDocumentID, record.DocumentID),
					logging.Int("retry_count", record.RetryCount),
					logging.String(logging.FieldEventType, "stuck_record_failed"))
			}
			continue
		}

		ok, err := r.store.ResetStuck(ctx, record.ID)
		if err != nil {
			return reset, failed, fmt.Errorf("reset stuck record %d: %w", record.ID, err)
		}
		if ok {
			reset++
			r.logger.Info("stuck record reclaimed",
				logging.Int64(logging.FieldRecordID, record.ID),
				logging.String(logging.FieldDocumentID, record.DocumentID),
				logging.String(logging.FieldProcessorID, record.ProcessorID),
				logging.String(logging.FieldEventType, "stuck_record_reclaimed"))
		}
	}
	return reset, failed, nil
}

// Start launches the periodic sweep loop.
func (r *Reclaimer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("reclaimer already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(runCtx)
	return nil
}

// Stop terminates the sweep loop and waits for it to exit.
func (r *Reclaimer) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Reclaimer) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		if !sleepContext(ctx, r.interval) {
			return
		}
		if _, _, err := r.Sweep(ctx); err != nil {
			r.logger.Error("sweep failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "sweep_failed"))
		}
	}
}
