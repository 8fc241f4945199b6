//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	logger := zerolog.Nop()
	p := NewPool(4, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt64(&ran, 1)
			return nil
		})
		if err != nil {
			wg.Done()
		}
	}
	wg.Wait()
	p.Stop()

	if got := atomic.LoadInt64(&ran); got == 0 {
		t.Fatal("no tasks ran")
	}
}

func TestPool_SubmitNil(t *testing.T) {
	logger := zerolog.Nop()
	p := NewPool(1, &logger)
	if err := p.Submit(nil); err == nil {
		t.Fatal("expected error for nil task")
	}
}

func TestPool_DropsWhenSaturated(t *testing.T) {
	logger := zerolog.Nop()
	p := NewPool(1, &logger)
	// Pool not started: the buffered queue (1*4) fills, then Submit must
	// report ErrQueueFull instead of blocking the webhook.
	block := func(ctx context.Context) error {
		time.Sleep(time.Hour)
		return nil
	}
	var lastErr error
	for i := 0; i < 10; i++ {
		if err := p.Submit(block); err != nil {
			lastErr = err
			break
		}
	}
	if !errors.Is(lastErr, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", lastErr)
	}
}
