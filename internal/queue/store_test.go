package queue_test

import (
	"context"
	"testing"

	"quire/internal/queue"
	"quire/internal/testsupport"
)

func TestOpenCreatesSchemaAndInsertsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record, err := store.NewRecord(ctx, "quarterly_report.pdf", queue.KindTextExtraction, queue.NewRecordOptions{Priority: 5})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("expected record ID to be assigned")
	}
	if record.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", record.Status)
	}
	if record.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", record.MaxRetries)
	}

	fetched, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.DocumentID != "quarterly_report.pdf" || fetched.Priority != 5 {
		t.Fatalf("unexpected fetched record: %#v", fetched)
	}
	if fetched.DisplayName != "Quarterly Report Pdf" {
		t.Fatalf("unexpected inferred display name: %q", fetched.DisplayName)
	}
}

func TestNewRecordRequiresDocumentID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewRecord(context.Background(), "  ", queue.KindClassification, queue.NewRecordOptions{}); err == nil {
		t.Fatal("expected error when document id missing")
	}
}

func TestNewRecordRejectsUnknownKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewRecord(context.Background(), "doc-1", queue.Kind("transcoding"), queue.NewRecordOptions{}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestFindByDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewRecord(t, store, "doc-a", queue.KindTextExtraction, queue.NewRecordOptions{})
	testsupport.NewRecord(t, store, "doc-a", queue.KindSummarization, queue.NewRecordOptions{})
	testsupport.NewRecord(t, store, "doc-b", queue.KindTextExtraction, queue.NewRecordOptions{})

	records, err := store.FindByDocument(ctx, "doc-a")
	if err != nil {
		t.Fatalf("FindByDocument failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for doc-a, got %d", len(records))
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})
	testsupport.NewRecord(t, store, "doc-2", queue.KindTextExtraction, queue.NewRecordOptions{})

	claimed, err := store.Claim(ctx, first.ID, "worker-1")
	if err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 || pending[0].DocumentID != "doc-2" {
		t.Fatalf("unexpected pending records: %#v", pending)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})
	testsupport.NewRecord(t, store, "doc-2", queue.KindClassification, queue.NewRecordOptions{})

	if claimed, err := store.Claim(ctx, first.ID, "worker-1"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}
	if done, err := store.Complete(ctx, first.ID, `{"pages":4}`); err != nil || !done {
		t.Fatalf("Complete failed: done=%v err=%v", done, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRetryFailedResetsBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{MaxRetries: 1})

	if claimed, err := store.Claim(ctx, record.ID, "worker-1"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}
	if failed, err := store.Fail(ctx, record.ID, "extraction timed out", ""); err != nil || !failed {
		t.Fatalf("Fail failed: failed=%v err=%v", failed, err)
	}

	updated, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", updated.Status)
	}

	count, err := store.RetryFailed(ctx, record.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record retried, got %d", count)
	}

	retried, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusPending || retried.RetryCount != 0 || retried.ErrorMessage != "" {
		t.Fatalf("unexpected record after retry: %#v", retried)
	}
}

func TestRemoveAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})
	testsupport.NewRecord(t, store, "doc-2", queue.KindTextExtraction, queue.NewRecordOptions{})

	removed, err := store.Remove(ctx, record.ID)
	if err != nil || !removed {
		t.Fatalf("Remove failed: removed=%v err=%v", removed, err)
	}
	if removed, err = store.Remove(ctx, record.ID); err != nil || removed {
		t.Fatalf("expected second remove to be a no-op: removed=%v err=%v", removed, err)
	}

	cleared, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 record cleared, got %d", cleared)
	}
}

func TestParseStatusAndKind(t *testing.T) {
	if status, ok := queue.ParseStatus(" In_Progress "); !ok || status != queue.StatusInProgress {
		t.Fatalf("unexpected parse result: %s %v", status, ok)
	}
	if _, ok := queue.ParseStatus("paused"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if kind, ok := queue.ParseKind("text-extraction"); !ok || kind != queue.KindTextExtraction {
		t.Fatalf("unexpected kind parse result: %s %v", kind, ok)
	}
	if _, ok := queue.ParseKind("ocr"); ok {
		t.Fatal("expected unknown kind to be rejected")
	}
}
