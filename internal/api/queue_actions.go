package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quire/internal/config"
	"quire/internal/queue"
)

// QueueMutator abstracts the queue mutations operators can trigger.
type QueueMutator interface {
	NewRecord(ctx context.Context, documentID string, kind queue.Kind, opts queue.NewRecordOptions) (*queue.Record, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	Cancel(ctx context.Context, id int64) (bool, error)
	Skip(ctx context.Context, id int64) (bool, error)
	Remove(ctx context.Context, id int64) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Clear(ctx context.Context) (int64, error)
}

// QueueActions exposes operator mutations on the durable queue.
type QueueActions struct {
	store QueueMutator
	cfg   *config.Config
}

// NewQueueActions constructs queue actions around the provided mutator.
func NewQueueActions(store QueueMutator, cfg *config.Config) *QueueActions {
	if store == nil {
		return nil
	}
	return &QueueActions{store: store, cfg: cfg}
}

// Enqueue validates an enqueue request and inserts the pending record.
// Unspecified priority and retry budget fall back to configured defaults.
func (a *QueueActions) Enqueue(ctx context.Context, req EnqueueRequest) (*QueueRecord, error) {
	if a == nil || a.store == nil {
		return nil, errors.New("queue actions unavailable")
	}
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return nil, errors.New("documentId is required")
	}
	kind, ok := queue.ParseKind(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", queue.ErrUnknownKind, req.Kind)
	}

	opts := queue.NewRecordOptions{DisplayName: req.DisplayName}
	if req.Priority != nil {
		opts.Priority = *req.Priority
	} else if a.cfg != nil {
		opts.Priority = a.cfg.Scheduler.DefaultPriority
	}
	if req.MaxRetries != nil {
		opts.MaxRetries = *req.MaxRetries
	} else if a.cfg != nil {
		opts.MaxRetries = a.cfg.Scheduler.DefaultMaxRetries
	}

	record, err := a.store.NewRecord(ctx, documentID, kind, opts)
	if err != nil {
		return nil, err
	}
	dto := FromRecord(record)
	return &dto, nil
}

// Retry moves failed records back to pending. With no ids, all failed
// records are retried.
func (a *QueueActions) Retry(ctx context.Context, ids ...int64) (int64, error) {
	if a == nil || a.store == nil {
		return 0, errors.New("queue actions unavailable")
	}
	return a.store.RetryFailed(ctx, ids...)
}

// Cancel marks a waiting record cancelled.
func (a *QueueActions) Cancel(ctx context.Context, id int64) (bool, error) {
	if a == nil || a.store == nil {
		return false, errors.New("queue actions unavailable")
	}
	return a.store.Cancel(ctx, id)
}

// Skip marks a waiting record skipped.
func (a *QueueActions) Skip(ctx context.Context, id int64) (bool, error) {
	if a == nil || a.store == nil {
		return false, errors.New("queue actions unavailable")
	}
	return a.store.Skip(ctx, id)
}

// Remove deletes a record outright.
func (a *QueueActions) Remove(ctx context.Context, id int64) (bool, error) {
	if a == nil || a.store == nil {
		return false, errors.New("queue actions unavailable")
	}
	return a.store.Remove(ctx, id)
}

// ClearScope names a subset of records for bulk deletion.
type ClearScope string

const (
	ClearScopeAll       ClearScope = "all"
	ClearScopeCompleted ClearScope = "completed"
	ClearScopeFailed    ClearScope = "failed"
)

// Clear bulk-deletes records in the requested scope and returns the count.
func (a *QueueActions) Clear(ctx context.Context, scope ClearScope) (int64, error) {
	if a == nil || a.store == nil {
		return 0, errors.New("queue actions unavailable")
	}
	switch scope {
	case ClearScopeCompleted:
		return a.store.ClearCompleted(ctx)
	case ClearScopeFailed:
		return a.store.ClearFailed(ctx)
	case ClearScopeAll:
		return a.store.Clear(ctx)
	default:
		return 0, fmt.Errorf("unknown clear scope %q", scope)
	}
}
