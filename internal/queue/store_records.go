package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewRecordOptions tunes optional fields when inserting a record.
type NewRecordOptions struct {
	DisplayName string
	Priority    int
	MaxRetries  int
}

// NewRecord inserts a pending record for a document awaiting processing.
func (s *Store) NewRecord(ctx context.Context, documentID string, kind Kind, opts NewRecordOptions) (*Record, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, errors.New("document id is required")
	}
	if _, ok := kindSet[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	displayName := strings.TrimSpace(opts.DisplayName)
	if displayName == "" {
		displayName = inferDisplayName(documentID)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_records (
            document_id, display_name, kind, status, priority,
            retry_count, max_retries, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		documentID,
		nullableString(displayName),
		kind,
		StatusPending,
		opts.Priority,
		0,
		opts.MaxRetries,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Update persists changes to an existing queue record. Lifecycle moves
// should go through the transition methods; Update exists for admin edits
// and tests that need to force a state.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	record.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_records
         SET document_id = ?, display_name = ?, kind = ?, status = ?, priority = ?,
             retry_count = ?, max_retries = ?, processor_id = ?, error_message = ?,
             error_details = ?, result_data = ?, updated_at = ?, started_at = ?,
             completed_at = ?, next_retry_at = ?
         WHERE id = ?`,
		record.DocumentID,
		nullableString(record.DisplayName),
		record.Kind,
		record.Status,
		record.Priority,
		record.RetryCount,
		record.MaxRetries,
		nullableString(record.ProcessorID),
		nullableString(record.ErrorMessage),
		nullableString(record.ErrorDetails),
		nullableString(record.ResultData),
		record.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(record.StartedAt),
		nullableTime(record.CompletedAt),
		nullableTime(record.NextRetryAt),
		record.ID,
	); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// GetByID fetches a queue record by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM queue_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// FindByDocument returns records for a document ordered by creation time.
func (s *Store) FindByDocument(ctx context.Context, documentID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM queue_records WHERE document_id = ? ORDER BY created_at`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("find by document: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// List returns queue records filtered by status set (or all records when no
// status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM queue_records`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Stats returns aggregate record counts per lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_records GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch Status(statusStr) {
		case StatusPending:
			stats.Pending = count
		case StatusInProgress:
			stats.InProgress = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		case StatusRetrying:
			stats.Retrying = count
		case StatusCancelled:
			stats.Cancelled = count
		case StatusSkipped:
			stats.Skipped = count
		}
	}
	return stats, rows.Err()
}

// Remove deletes a record by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed records from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_records WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed records from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_records WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all records from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_records`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

var displayNameCaser = cases.Title(language.Und)

func inferDisplayName(documentID string) string {
	cleaned := strings.TrimSpace(documentID)
	for _, sep := range []string{"_", "-", "."} {
		cleaned = strings.ReplaceAll(cleaned, sep, " ")
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "Document"
	}
	return displayNameCaser.String(cleaned)
}
