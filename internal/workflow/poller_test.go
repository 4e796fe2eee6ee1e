package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quire/internal/logging"
	"quire/internal/processing"
	"quire/internal/queue"
	"quire/internal/testsupport"
	"quire/internal/workflow"
)

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Record {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if record != nil && record.Status == want {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	record, _ := store.GetByID(context.Background(), id)
	t.Fatalf("record %d never reached %s, got %#v", id, want, record)
	return nil
}

func TestPollerCompletesEligibleRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	dispatcher := processing.NewDispatcher()
	dispatcher.Register(queue.KindTextExtraction, processing.ProcessorFunc(
		func(ctx context.Context, documentID string) (processing.Result, error) {
			return processing.Result{Success: true, Payload: `{"chars":120}`}, nil
		}))

	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})

	poller := workflow.NewPoller(cfg, store, dispatcher, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()

	completed := waitForStatus(t, store, record.ID, queue.StatusCompleted)
	if completed.ResultData != `{"chars":120}` {
		t.Fatalf("unexpected result data: %q", completed.ResultData)
	}
	if completed.ProcessorID == "" {
		t.Fatal("expected processor id stamped on claim")
	}
}

func TestPollerRecordsProcessorFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	dispatcher := processing.NewDispatcher()
	dispatcher.Register(queue.KindClassification, processing.ProcessorFunc(
		func(ctx context.Context, documentID string) (processing.Result, error) {
			return processing.Result{Success: false, ErrorMessage: "model unavailable"}, nil
		}))

	record := testsupport.NewRecord(t, store, "doc-1", queue.KindClassification, queue.NewRecordOptions{})

	poller := workflow.NewPoller(cfg, store, dispatcher, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()

	retrying := waitForStatus(t, store, record.ID, queue.StatusRetrying)
	if retrying.ErrorMessage != "model unavailable" || retrying.RetryCount != 1 {
		t.Fatalf("unexpected record after failure: %#v", retrying)
	}
	if retrying.NextRetryAt == nil {
		t.Fatal("expected backoff schedule after failure")
	}
}

func TestPollerRecordsDispatchError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	dispatcher := processing.NewDispatcher()
	dispatcher.Register(queue.KindSummarization, processing.ProcessorFunc(
		func(ctx context.Context, documentID string) (processing.Result, error) {
			return processing.Result{}, errors.New("connection refused")
		}))

	record := testsupport.NewRecord(t, store, "doc-1", queue.KindSummarization, queue.NewRecordOptions{})

	poller := workflow.NewPoller(cfg, store, dispatcher, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()

	retrying := waitForStatus(t, store, record.ID, queue.StatusRetrying)
	if retrying.ErrorMessage != "connection refused" {
		t.Fatalf("unexpected error message: %q", retrying.ErrorMessage)
	}
}

func TestPollerStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	poller := workflow.NewPoller(cfg, store, processing.NewDispatcher(), logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()

	if err := poller.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestPollerStatusReportsState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	updates := make(chan workflow.StatusSummary, 64)
	poller := workflow.NewPoller(cfg, store, processing.NewDispatcher(), logging.NewNop(),
		workflow.WithProcessorID("test-proc"),
		workflow.WithOnUpdate(func(summary workflow.StatusSummary) {
			select {
			case updates <- summary:
			default:
			}
		}))

	status := poller.Status()
	if status.State != workflow.StateIdle || status.ProcessorID != "test-proc" {
		t.Fatalf("unexpected initial status: %#v", status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case summary := <-updates:
		if summary.State != workflow.StatePolling && summary.State != workflow.StateBackoff {
			t.Fatalf("unexpected first update: %#v", summary)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status update observed")
	}
	poller.Stop()

	if status := poller.Status(); status.State != workflow.StateIdle {
		t.Fatalf("expected idle after stop, got %s", status.State)
	}
}
