package api_test

import (
	"context"
	"testing"

	"quire/internal/api"
	"quire/internal/queue"
	"quire/internal/testsupport"
)

func TestQueueServiceListAndDescribe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	service := api.NewQueueService(store)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "annual_review.docx", queue.KindSummarization, queue.NewRecordOptions{Priority: 2})

	records, err := service.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].DocumentID != "annual_review.docx" {
		t.Fatalf("unexpected list result: %#v", records)
	}
	if records[0].Status != "pending" || records[0].Priority != 2 {
		t.Fatalf("unexpected DTO: %#v", records[0])
	}
	if records[0].CreatedAt == "" {
		t.Fatal("expected formatted creation timestamp")
	}

	dto, err := service.Describe(ctx, record.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if dto == nil || dto.ID != record.ID || dto.Kind != "summarization" {
		t.Fatalf("unexpected describe result: %#v", dto)
	}

	missing, err := service.Describe(ctx, record.ID+100)
	if err != nil {
		t.Fatalf("Describe missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %#v", missing)
	}
}

func TestQueueServiceStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	service := api.NewQueueService(store)

	ctx := context.Background()
	testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})
	testsupport.NewRecord(t, store, "doc-2", queue.KindTextExtraction, queue.NewRecordOptions{})

	stats, err := service.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestQueueActionsEnqueueAppliesDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.DefaultPriority = 4
	cfg.Scheduler.DefaultMaxRetries = 7
	store := testsupport.MustOpenStore(t, cfg)
	actions := api.NewQueueActions(store, cfg)

	ctx := context.Background()
	dto, err := actions.Enqueue(ctx, api.EnqueueRequest{DocumentID: "doc-1", Kind: "text-extraction"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if dto.Priority != 4 || dto.MaxRetries != 7 {
		t.Fatalf("expected configured defaults applied, got %#v", dto)
	}

	priority := 9
	dto, err = actions.Enqueue(ctx, api.EnqueueRequest{DocumentID: "doc-2", Kind: "classification", Priority: &priority})
	if err != nil {
		t.Fatalf("Enqueue with priority: %v", err)
	}
	if dto.Priority != 9 {
		t.Fatalf("expected explicit priority, got %d", dto.Priority)
	}
}

func TestQueueActionsEnqueueValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	actions := api.NewQueueActions(store, cfg)

	ctx := context.Background()
	if _, err := actions.Enqueue(ctx, api.EnqueueRequest{Kind: "classification"}); err == nil {
		t.Fatal("expected error for missing document id")
	}
	if _, err := actions.Enqueue(ctx, api.EnqueueRequest{DocumentID: "doc-1", Kind: "ocr"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestQueueActionsLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	actions := api.NewQueueActions(store, cfg)

	ctx := context.Background()
	record := testsupport.NewRecord(t, store, "doc-1", queue.KindTextExtraction, queue.NewRecordOptions{})

	if ok, err := actions.Cancel(ctx, record.ID); err != nil || !ok {
		t.Fatalf("Cancel failed: ok=%v err=%v", ok, err)
	}

	victim := testsupport.NewRecord(t, store, "doc-2", queue.KindTextExtraction, queue.NewRecordOptions{})
	if ok, err := actions.Remove(ctx, victim.ID); err != nil || !ok {
		t.Fatalf("Remove failed: ok=%v err=%v", ok, err)
	}

	if _, err := actions.Clear(ctx, api.ClearScope("bogus")); err == nil {
		t.Fatal("expected error for unknown clear scope")
	}
	if count, err := actions.Clear(ctx, api.ClearScopeAll); err != nil || count != 1 {
		t.Fatalf("Clear all: count=%d err=%v", count, err)
	}
}
