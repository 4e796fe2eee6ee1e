package queue

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "id, document_id, display_name, kind, status, priority, retry_count, max_retries, processor_id, error_message, error_details, result_data, created_at, updated_at, started_at, completed_at, next_retry_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id            int64
		documentID    string
		displayName   sql.NullString
		kindStr       string
		statusStr     string
		priority      sql.NullInt64
		retryCount    sql.NullInt64
		maxRetries    sql.NullInt64
		processorID   sql.NullString
		errorMessage  sql.NullString
		errorDetails  sql.NullString
		resultData    sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		startedRaw    sql.NullString
		completedRaw  sql.NullString
		nextRetryRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&documentID,
		&displayName,
		&kindStr,
		&statusStr,
		&priority,
		&retryCount,
		&maxRetries,
		&processorID,
		&errorMessage,
		&errorDetails,
		&resultData,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&nextRetryRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		DocumentID:   documentID,
		DisplayName:  displayName.String,
		Kind:         Kind(kindStr),
		Status:       Status(statusStr),
		Priority:     int(priority.Int64),
		RetryCount:   int(retryCount.Int64),
		MaxRetries:   int(maxRetries.Int64),
		ProcessorID:  processorID.String,
		ErrorMessage: errorMessage.String,
		ErrorDetails: errorDetails.String,
		ResultData:   resultData.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			record.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			record.CompletedAt = &completed
		}
	}
	if nextRetryRaw.Valid {
		if nextRetry, err := parseTimeString(nextRetryRaw.String); err == nil {
			record.NextRetryAt = &nextRetry
		}
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
