package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"quire/internal/config"
	"quire/internal/logging"
	"quire/internal/processing"
	"quire/internal/queue"
)

// Poller is the single loop that moves durable records through processing.
// Dispatch is deliberately serialized so claim races stay rare; correctness
// rests on the store's atomic Claim.
type Poller struct {
	store       *queue.Store
	dispatcher  *processing.Dispatcher
	logger      *slog.Logger
	processorID string

	pollInterval  time.Duration
	errorInterval time.Duration
	startupDelay  time.Duration

	onUpdate func(StatusSummary)

	mu           sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	state        State
	lastRecordID int64
	lastErr      error
}

// PollerOption configures optional Poller behavior.
type PollerOption func(*Poller)

// WithProcessorID overrides the generated claimant identifier.
func WithProcessorID(id string) PollerOption {
	return func(p *Poller) {
		if id != "" {
			p.processorID = id
		}
	}
}

// WithOnUpdate registers a callback invoked after every state change.
func WithOnUpdate(fn func(StatusSummary)) PollerOption {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// NewPoller constructs a poller from the scheduler configuration.
func NewPoller(cfg *config.Config, store *queue.Store, dispatcher *processing.Dispatcher, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "quire"
	}
	poller := &Poller{
		store:         store,
		dispatcher:    dispatcher,
		logger:        logging.NewComponentLogger(logger, "poller"),
		processorID:   fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		pollInterval:  time.Duration(cfg.Scheduler.PollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Scheduler.ErrorRetryInterval) * time.Second,
		startupDelay:  time.Duration(cfg.Scheduler.StartupDelay) * time.Second,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(poller)
	}
	return poller
}

// Start launches the polling loop. It returns an error when the poller is
// already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("poller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(runCtx)
	return nil
}

// Stop terminates the polling loop and waits for an in-flight dispatch to
// record its outcome.
func (p *Poller) Stop() {
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
	p.setState(StateIdle, 0, nil)
}

// Status returns a snapshot of the poller state.
func (p *Poller) Status() StatusSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary := StatusSummary{
		State:        p.state,
		ProcessorID:  p.processorID,
		LastRecordID: p.lastRecordID,
		UpdatedAt:    time.Now().UTC(),
	}
	if p.lastErr != nil {
		summary.LastError = p.lastErr.Error()
	}
	return summary
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	if p.startupDelay > 0 {
		if !sleepContext(ctx, p.startupDelay) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.setState(StatePolling, 0, nil)
		records, err := p.store.GetEligible(ctx, 1)
		if err != nil {
			p.logger.Error("polling failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "poll_failed"))
			p.setState(StateBackoff, 0, err)
			if !sleepContext(ctx, p.errorInterval) {
				return
			}
			continue
		}

		if len(records) == 0 {
			p.setState(StateBackoff, 0, nil)
			if !sleepContext(ctx, p.pollInterval) {
				return
			}
			continue
		}

		record := records[0]
		claimed, err := p.store.Claim(ctx, record.ID, p.processorID)
		if err != nil {
			p.logger.Error("claim failed",
				logging.Int64(logging.FieldRecordID, record.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"))
			p.setState(StateBackoff, record.ID, err)
			if !sleepContext(ctx, p.errorInterval) {
				return
			}
			continue
		}
		if !claimed {
			// Lost the race or the record became ineligible. Poll again.
			continue
		}

		p.logger.Info("record claimed",
			logging.Int64(logging.FieldRecordID, record.ID),
			logging.String(logging.FieldDocumentID, record.DocumentID),
			logging.String(logging.FieldKind, string(record.Kind)),
			logging.String(logging.FieldProcessorID, p.processorID),
			logging.String(logging.FieldEventType, "record_claimed"))

		p.setState(StateDispatching, record.ID, nil)
		p.dispatch(ctx, record)
		// Drain the backlog quickly; the next iteration polls immediately.
	}
}

// dispatch invokes the processor and records the outcome. Outcome writes use
// a detached context so a shutdown mid-flight still lands in the store.
func (p *Poller) dispatch(ctx context.Context, record *queue.Record) {
	writeCtx := context.WithoutCancel(ctx)

	result, err := p.dispatcher.Process(ctx, record.Kind, record.DocumentID)
	if err != nil {
		p.recordFailure(writeCtx, record, err.Error(), "")
		return
	}
	if !result.Success {
		message := result.ErrorMessage
		if message == "" {
			message = "processor reported failure"
		}
		p.recordFailure(writeCtx, record, message, result.Payload)
		return
	}

	done, err := p.store.Complete(writeCtx, record.ID, result.Payload)
	if err != nil {
		p.logger.Error("completion write failed",
			logging.Int64(logging.FieldRecordID, record.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "complete_failed"))
		p.noteError(err)
		return
	}
	if !done {
		p.logger.Warn("record no longer in progress at completion",
			logging.Int64(logging.FieldRecordID, record.ID),
			logging.String(logging.FieldEventType, "complete_skipped"))
		return
	}
	p.logger.Info("record completed",
		logging.Int64(logging.FieldRecordID, record.ID),
		logging.String(logging.FieldDocumentID, record.DocumentID),
		logging.String(logging.FieldEventType, "record_completed"))
}

func (p *Poller) recordFailure(ctx context.Context, record *queue.Record, message, details string) {
	failed, err := p.store.Fail(ctx, record.ID, message, details)
	if err != nil {
		p.logger.Error("failure write failed",
			logging.Int64(logging.FieldRecordID, record.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "fail_write_failed"))
		p.noteError(err)
		return
	}
	if !failed {
		p.logger.Warn("record no longer in progress at failure",
			logging.Int64(logging.FieldRecordID, record.ID),
			logging.String(logging.FieldEventType, "fail_skipped"))
		return
	}
	p.logger.Warn("record failed",
		logging.Int64(logging.FieldRecordID, record.ID),
		logging.String(logging.FieldDocumentID, record.DocumentID),
		logging.String("error_message", message),
		logging.String(logging.FieldEventType, "record_failed"))
}

func (p *Poller) setState(state State, recordID int64, err error) {
	p.mu.Lock()
	p.state = state
	if recordID != 0 {
		p.lastRecordID = recordID
	}
	p.lastErr = err
	onUpdate := p.onUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(p.Status())
	}
}

func (p *Poller) noteError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// sleepContext waits for the duration and reports false when the context is
// cancelled first.
func sleepContext(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
