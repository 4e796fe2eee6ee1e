package api

import (
	"context"

	"quire/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API
// queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Record, error)
	Stats(ctx context.Context) (queue.Stats, error)
	GetByID(ctx context.Context, id int64) (*queue.Record, error)
	FindByDocument(ctx context.Context, documentID string) ([]*queue.Record, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queue records filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueRecord, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Stats returns queue summary counts.
func (s *QueueService) Stats(ctx context.Context) (QueueStats, error) {
	if s == nil || s.store == nil {
		return QueueStats{}, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return FromStats(stats), nil
}

// Describe fetches a single queue record.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueRecord, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	dto := FromRecord(record)
	return &dto, nil
}

// ForDocument fetches the records attached to a document.
func (s *QueueService) ForDocument(ctx context.Context, documentID string) ([]QueueRecord, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}
