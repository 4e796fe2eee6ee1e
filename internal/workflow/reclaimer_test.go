package workflow_test

import (
	"context"
	"testing"
	"time"

	"quire/internal/logging"
	"quire/internal/queue"
	"quire/internal/testsupport"
	"quire/internal/workflow"
)

func TestSweepResetsStuckRecordWithRetriesLeft(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.StuckTimeoutMinutes = 0
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})
	if claimed, err := store.Claim(ctx, record.ID, "crashed-worker"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}
	time.Sleep(5 * time.Millisecond)

	reclaimer := workflow.NewReclaimer(cfg, store, logging.NewNop())
	reset, failed, err := reclaimer.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reset != 1 || failed != 0 {
		t.Fatalf("expected 1 reset and 0 failed, got %d/%d", reset, failed)
	}

	updated, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusPending || updated.ProcessorID != "" || updated.StartedAt != nil {
		t.Fatalf("unexpected record after sweep: %#v", updated)
	}
}

func TestSweepFailsStuckRecordWithExhaustedRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.StuckTimeoutMinutes = 0
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{MaxRetries: 2})
	if claimed, err := store.Claim(ctx, record.ID, "crashed-worker"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}

	// Force the budget to look exhausted while the record is still claimed.
	claimed, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	claimed.RetryCount = claimed.MaxRetries
	if err := store.Update(ctx, claimed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	reclaimer := workflow.NewReclaimer(cfg, store, logging.NewNop())
	reset, failed, err := reclaimer.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reset != 0 || failed != 1 {
		t.Fatalf("expected 0 reset and 1 failed, got %d/%d", reset, failed)
	}

	updated, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusFailed || updated.ErrorMessage != queue.ReclaimReason {
		t.Fatalf("unexpected record after sweep: %#v", updated)
	}
}

func TestSweepIgnoresFreshClaims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})
	if claimed, err := store.Claim(ctx, record.ID, "worker"); err != nil || !claimed {
		t.Fatalf("Claim failed: claimed=%v err=%v", claimed, err)
	}

	reclaimer := workflow.NewReclaimer(cfg, store, logging.NewNop())
	reset, failed, err := reclaimer.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if reset != 0 || failed != 0 {
		t.Fatalf("expected fresh claim untouched, got reset=%d failed=%d", reset, failed)
	}
}

func TestReclaimerStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.ReclaimInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	reclaimer := workflow.NewReclaimer(cfg, store, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := reclaimer.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := reclaimer.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
	reclaimer.Stop()
	reclaimer.Stop()
}
