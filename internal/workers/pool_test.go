package workers_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quire/internal/logging"
	"quire/internal/taskqueue"
	"quire/internal/workers"
)

func newQueue(t *testing.T, capacity int) taskqueue.Queue {
	t.Helper()
	queue, err := taskqueue.New(taskqueue.PolicyFIFO, capacity)
	if err != nil {
		t.Fatalf("taskqueue.New: %v", err)
	}
	return queue
}

func TestPoolExecutesTasks(t *testing.T) {
	queue := newQueue(t, 8)
	pool := workers.NewPool(queue, 2, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop()

	var executed atomic.Int64
	var wg sync.WaitGroup
	const total = 5
	wg.Add(total)
	for i := 0; i < total; i++ {
		task := &taskqueue.Task{Run: func(context.Context) error {
			executed.Add(1)
			wg.Done()
			return nil
		}}
		if err := queue.Enqueue(ctx, task); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks were not executed in time")
	}
	if executed.Load() != total {
		t.Fatalf("expected %d executions, got %d", total, executed.Load())
	}
}

func TestPoolSurvivesFailingTasks(t *testing.T) {
	queue := newQueue(t, 8)
	pool := workers.NewPool(queue, 1, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop()

	succeeded := make(chan struct{})
	failing := &taskqueue.Task{Run: func(context.Context) error { return errors.New("boom") }}
	panicking := &taskqueue.Task{Run: func(context.Context) error { panic("kaboom") }}
	follower := &taskqueue.Task{Run: func(context.Context) error {
		close(succeeded)
		return nil
	}}

	for _, task := range []*taskqueue.Task{failing, panicking, follower} {
		if err := queue.Enqueue(ctx, task); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("worker loop did not survive failing tasks")
	}
}

func TestPoolStartTwiceFails(t *testing.T) {
	queue := newQueue(t, 4)
	pool := workers.NewPool(queue, 1, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop()

	if err := pool.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestPoolStopWaitsForInFlightTask(t *testing.T) {
	queue := newQueue(t, 4)
	pool := workers.NewPool(queue, 1, logging.NewNop())

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	started := make(chan struct{})
	var finished atomic.Bool
	task := &taskqueue.Task{Run: func(context.Context) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	}}
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	<-started
	pool.Stop()
	if !finished.Load() {
		t.Fatal("expected stop to wait for the in-flight task")
	}
}

func TestPoolStopIdempotent(t *testing.T) {
	queue := newQueue(t, 4)
	pool := workers.NewPool(queue, 1, logging.NewNop())

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pool.Stop()
	pool.Stop()
}
