package mirror

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFanoutRunsAllTasks(t *testing.T) {
	var ran atomic.Int32
	f := NewFanout(time.Second, zerolog.Nop())
	f.Dispatch(context.Background(),
		Task{Name: "bucket", Write: func(ctx context.Context) error { ran.Add(1); return nil }},
		Task{Name: "docdb", Write: func(ctx context.Context) error { ran.Add(1); return nil }},
	)
	if got := ran.Load(); got != 2 {
		t.Fatalf("expected 2 tasks to run, got %d", got)
	}
}

func TestFanoutSwallowsErrors(t *testing.T) {
	f := NewFanout(time.Second, zerolog.Nop())
	// A failing mirror must not panic or propagate.
	f.Dispatch(context.Background(), Task{Name: "bucket", Write: func(ctx context.Context) error {
		return errors.New("bucket unreachable")
	}})
}

func TestFanoutBoundedByTimeout(t *testing.T) {
	f := NewFanout(30*time.Millisecond, zerolog.Nop())
	start := time.Now()
	f.Dispatch(context.Background(), Task{Name: "slow", Write: func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dispatch did not respect timeout, took %s", elapsed)
	}
}

func TestFanoutIgnoresCallerCancellation(t *testing.T) {
	// Mirror writes run on a detached context so an aborted request does not
	// cut off an in-flight best-effort write before its own deadline.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	f := NewFanout(time.Second, zerolog.Nop())
	f.Dispatch(ctx, Task{Name: "bucket", Write: func(taskCtx context.Context) error {
		ran.Store(taskCtx.Err() == nil)
		return nil
	}})
	if !ran.Load() {
		t.Fatal("task context should not inherit caller cancellation")
	}
}

func TestSanitizeDocID(t *testing.T) {
	got := SanitizeDocID("2026-02-14/sol-usdc/trade 7")
	want := "2026-02-14:sol-usdc:trade:7"
	if got != want {
		t.Fatalf("sanitize mismatch: got %q want %q", got, want)
	}
}
