package api

import (
	"time"

	"quire/internal/queue"
)

// FromRecord converts a queue record into its API representation.
func FromRecord(record *queue.Record) QueueRecord {
	if record == nil {
		return QueueRecord{}
	}
	return QueueRecord{
		ID:           record.ID,
		DocumentID:   record.DocumentID,
		DisplayName:  record.DisplayName,
		Kind:         string(record.Kind),
		Status:       string(record.Status),
		Priority:     record.Priority,
		RetryCount:   record.RetryCount,
		MaxRetries:   record.MaxRetries,
		ProcessorID:  record.ProcessorID,
		ErrorMessage: record.ErrorMessage,
		ErrorDetails: record.ErrorDetails,
		ResultData:   record.ResultData,
		CreatedAt:    formatTime(record.CreatedAt),
		UpdatedAt:    formatTime(record.UpdatedAt),
		StartedAt:    formatTimePtr(record.StartedAt),
		CompletedAt:  formatTimePtr(record.CompletedAt),
		NextRetryAt:  formatTimePtr(record.NextRetryAt),
	}
}

// FromRecords converts a slice of queue records.
func FromRecords(records []*queue.Record) []QueueRecord {
	result := make([]QueueRecord, 0, len(records))
	for _, record := range records {
		result = append(result, FromRecord(record))
	}
	return result
}

// FromStats converts store statistics into their API representation.
func FromStats(stats queue.Stats) QueueStats {
	return QueueStats{
		Total:      stats.Total,
		Pending:    stats.Pending,
		InProgress: stats.InProgress,
		Completed:  stats.Completed,
		Failed:     stats.Failed,
		Retrying:   stats.Retrying,
		Cancelled:  stats.Cancelled,
		Skipped:    stats.Skipped,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}
