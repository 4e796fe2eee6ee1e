package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// maxBackoff caps the exponential retry delay so large retry budgets cannot
// push a record arbitrarily far into the future.
const maxBackoff = 60 * time.Minute

// BackoffDelay returns the wait before the next attempt after the given
// number of failures. The delay doubles per failure, capped at maxBackoff.
func BackoffDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	shift := retryCount - 1
	if shift > 10 {
		return maxBackoff
	}
	delay := time.Duration(1<<shift) * time.Minute
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// GetEligible returns up to limit records ready for processing: pending
// records plus retrying records whose backoff has elapsed. Ordering is the
// durable scheduling policy and must stay exact: priority descending, then
// creation time ascending.
func (s *Store) GetEligible(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 1
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM queue_records
         WHERE status = ? OR (status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?)
         ORDER BY priority DESC, created_at ASC
         LIMIT ?`,
		StatusPending,
		StatusRetrying,
		now,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query eligible records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Claim atomically transitions an eligible record to in_progress and stamps
// the claimant. It returns false when the record was not eligible, which
// callers treat the same as losing a claim race.
func (s *Store) Claim(ctx context.Context, id int64, processorID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_records
         SET status = ?, processor_id = ?, started_at = ?, next_retry_at = NULL, updated_at = ?
         WHERE id = ?
           AND (status = ? OR (status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?))`,
		StatusInProgress,
		nullableString(processorID),
		now,
		now,
		id,
		StatusPending,
		StatusRetrying,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("claim record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Complete transitions an in_progress record to completed and stores the
// result payload. Returns false when the record was not in_progress.
func (s *Store) Complete(ctx context.Context, id int64, resultData string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_records
         SET status = ?, result_data = ?, error_message = NULL, error_details = NULL,
             completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		nullableString(resultData),
		now,
		now,
		id,
		StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("complete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Fail records a processing failure for an in_progress record. While the
// retry budget lasts the record moves to retrying with an exponential
// backoff; otherwise it becomes terminally failed. The error text is stored
// on both branches. Returns false when the record was not in_progress.
func (s *Store) Fail(ctx context.Context, id int64, errorMessage, errorDetails string) (bool, error) {
	ctx = ensureContext(ctx)
	var transitioned bool
	err := retryOnBusy(ctx, func() error {
		var txErr error
		transitioned, txErr = s.failTx(ctx, id, errorMessage, errorDetails)
		return txErr
	})
	if err != nil {
		return false, err
	}
	return transitioned, nil
}

func (s *Store) failTx(ctx context.Context, id int64, errorMessage, errorDetails string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin fail tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		retryCount int
		maxRetries int
	)
	row := tx.QueryRowContext(
		ctx,
		`SELECT retry_count, max_retries FROM queue_records WHERE id = ? AND status = ?`,
		id,
		StatusInProgress,
	)
	if err := row.Scan(&retryCount, &maxRetries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read retry state: %w", err)
	}

	retryCount++
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	if retryCount < maxRetries {
		nextRetry := now.Add(BackoffDelay(retryCount)).Format(time.RFC3339Nano)
		_, err = tx.ExecContext(
			ctx,
			`UPDATE queue_records
             SET status = ?, retry_count = ?, next_retry_at = ?,
                 error_message = ?, error_details = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusRetrying,
			retryCount,
			nextRetry,
			nullableString(errorMessage),
			nullableString(errorDetails),
			timestamp,
			id,
			StatusInProgress,
		)
	} else {
		_, err = tx.ExecContext(
			ctx,
			`UPDATE queue_records
             SET status = ?, retry_count = ?, next_retry_at = NULL,
                 error_message = ?, error_details = ?, completed_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusFailed,
			retryCount,
			nullableString(errorMessage),
			nullableString(errorDetails),
			timestamp,
			timestamp,
			id,
			StatusInProgress,
		)
	}
	if err != nil {
		return false, fmt.Errorf("record failure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit fail tx: %w", err)
	}
	return true, nil
}

// FindStuck returns in_progress records whose claim predates the cutoff.
func (s *Store) FindStuck(ctx context.Context, cutoff time.Time) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM queue_records
         WHERE status = ? AND started_at IS NOT NULL AND started_at < ?
         ORDER BY started_at`,
		StatusInProgress,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query stuck records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ResetStuck returns a stuck in_progress record to pending, clearing its
// claimant. Returns false when the record is no longer in_progress.
func (s *Store) ResetStuck(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_records
         SET status = ?, processor_id = NULL, started_at = NULL, next_retry_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		now,
		id,
		StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("reset stuck record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkFailed forces an in_progress record into the terminal failed state.
// Used by the reclaimer when a stuck record has exhausted its retries.
func (s *Store) MarkFailed(ctx context.Context, id int64, errorMessage string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_records
         SET status = ?, error_message = ?, next_retry_at = NULL, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		nullableString(errorMessage),
		now,
		now,
		id,
		StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("mark record failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Cancel moves a waiting record to the terminal cancelled state. Records
// already claimed or finished are left untouched.
func (s *Store) Cancel(ctx context.Context, id int64) (bool, error) {
	return s.adminTransition(ctx, id, StatusCancelled)
}

// Skip moves a waiting record to the terminal skipped state.
func (s *Store) Skip(ctx context.Context, id int64) (bool, error) {
	return s.adminTransition(ctx, id, StatusSkipped)
}

func (s *Store) adminTransition(ctx context.Context, id int64, target Status) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_records
         SET status = ?, next_retry_at = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		target,
		now,
		id,
		StatusPending,
		StatusRetrying,
	)
	if err != nil {
		return false, fmt.Errorf("transition record to %s: %w", target, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed moves failed records back to pending with a fresh retry
// budget. With no ids, every failed record is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_records
            SET status = ?, retry_count = 0, next_retry_at = NULL,
                error_message = NULL, error_details = NULL,
                processor_id = NULL, started_at = NULL, completed_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed records: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_records
        SET status = ?, retry_count = 0, next_retry_at = NULL,
            error_message = NULL, error_details = NULL,
            processor_id = NULL, started_at = NULL, completed_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected records: %w", err)
	}
	return res.RowsAffected()
}
