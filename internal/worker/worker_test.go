package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	// Submit some jobs
	for i := 0; i < 5; i++ {
		pool.Submit(ctx, i)
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		go func(n int) {
			pool.Submit(ctx, n)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 100; i++ {
		<-done
	}

	time.Sleep(100 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_ProcessorErrorKeepsWorkerAlive(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		processed.Add(1)
		if job.(int)%2 == 0 {
			return errors.New("boom")
		}
		return nil
	}

	pool := NewWorkerPool(1, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 6; i++ {
		pool.Submit(ctx, i)
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 6 {
		t.Errorf("expected 6 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_SubmitUnblocksOnCancel(t *testing.T) {
	block := make(chan struct{})
	processor := func(ctx context.Context, job Job) error {
		<-block
		return nil
	}

	// One worker held by the first job, buffer of one.
	pool := NewWorkerPool(1, 1, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	pool.Submit(ctx, 1)
	time.Sleep(20 * time.Millisecond)
	pool.Submit(ctx, 2)

	result := make(chan bool)
	go func() {
		result <- pool.Submit(ctx, 3)
	}()

	cancel()

	select {
	case ok := <-result:
		if ok {
			t.Error("expected Submit to report false after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Submit did not return after cancel")
	}

	close(block)
	pool.Stop()
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		time.Sleep(10 * time.Millisecond) // Simulate work
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(ctx, i)
	}

	// Cancel immediately
	cancel()

	// Stop should wait for in-flight jobs
	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		// Good
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("processed %d jobs before shutdown", processed.Load())
}
