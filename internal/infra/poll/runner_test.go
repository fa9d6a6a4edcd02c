//go:build !integration

package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRunnerStartIsIdempotent(t *testing.T) {
	r := NewRunner(testLogger())
	defer r.StopAll()

	tick := func(context.Context) bool { return false }
	if !r.Start(context.Background(), "job-1", 5*time.Millisecond, tick) {
		t.Fatal("first start should succeed")
	}
	if r.Start(context.Background(), "job-1", 5*time.Millisecond, tick) {
		t.Fatal("second start for same id should be a no-op")
	}
	if r.LiveCount() != 1 {
		t.Fatalf("live count = %d, want 1", r.LiveCount())
	}
}

func TestRunnerStopsOnDoneTick(t *testing.T) {
	r := NewRunner(testLogger())
	defer r.StopAll()

	var ticks atomic.Int32
	r.Start(context.Background(), "job-1", 2*time.Millisecond, func(context.Context) bool {
		return ticks.Add(1) >= 3
	})

	waitFor(t, func() bool { return r.LiveCount() == 0 })
	// Give any stray timer a chance to fire.
	n := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != n {
		t.Fatalf("tick ran after loop finished: %d -> %d", n, got)
	}
}

func TestRunnerStopPreventsFurtherTicks(t *testing.T) {
	r := NewRunner(testLogger())

	var ticks atomic.Int32
	r.Start(context.Background(), "job-1", 2*time.Millisecond, func(context.Context) bool {
		ticks.Add(1)
		return false
	})
	waitFor(t, func() bool { return ticks.Load() > 0 })

	r.Stop("job-1")
	if r.Live("job-1") {
		t.Fatal("loop still live after Stop")
	}
	// At most the in-flight tick may complete; after that the count is
	// frozen.
	time.Sleep(10 * time.Millisecond)
	n := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != n {
		t.Fatalf("tick ran after Stop: %d -> %d", n, got)
	}
}

func TestRunnerStopAll(t *testing.T) {
	r := NewRunner(testLogger())
	for _, id := range []string{"a", "b", "c"} {
		r.Start(context.Background(), id, 5*time.Millisecond, func(context.Context) bool { return false })
	}
	if r.LiveCount() != 3 {
		t.Fatalf("live count = %d, want 3", r.LiveCount())
	}
	r.StopAll()
	if r.LiveCount() != 0 {
		t.Fatalf("live count after StopAll = %d, want 0", r.LiveCount())
	}
}

func TestRunnerContextCancelTearsDown(t *testing.T) {
	r := NewRunner(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx, "job-1", 2*time.Millisecond, func(context.Context) bool { return false })
	cancel()
	waitFor(t, func() bool { return r.LiveCount() == 0 })
}

func TestJobTickLifecycle(t *testing.T) {
	t.Run("terminal status stops the loop and fires onTerminal once", func(t *testing.T) {
		h := model.NewJobHandle("job-1", model.JobKindVideo)
		statuses := []adapter.JobStatus{
			{State: model.JobStateRunning},
			{State: model.JobStateRunning},
			{State: model.JobStateSucceeded, ResultURL: "https://cdn.example/v.mp4"},
		}
		var i int
		var terminal atomic.Int32
		tick := JobTick(h,
			func(context.Context) (adapter.JobStatus, error) {
				st := statuses[i]
				if i < len(statuses)-1 {
					i++
				}
				return st, nil
			},
			nil,
			func(*model.JobHandle) { terminal.Add(1) },
			testLogger(),
		)

		if tick(context.Background()) {
			t.Fatal("first tick should not be done")
		}
		if h.State != model.JobStateRunning {
			t.Fatalf("state = %s, want running", h.State)
		}
		tick(context.Background())
		if !tick(context.Background()) {
			t.Fatal("terminal tick should report done")
		}
		if h.State != model.JobStateSucceeded || h.ResultURL != "https://cdn.example/v.mp4" {
			t.Fatalf("handle not updated: %s %q", h.State, h.ResultURL)
		}
		if terminal.Load() != 1 {
			t.Fatalf("onTerminal fired %d times, want 1", terminal.Load())
		}
	})

	t.Run("transient fetch failures are retried", func(t *testing.T) {
		h := model.NewJobHandle("job-2", model.JobKindVideo)
		calls := 0
		tick := JobTick(h,
			func(context.Context) (adapter.JobStatus, error) {
				calls++
				if calls < 3 {
					return adapter.JobStatus{}, errors.New("connection reset")
				}
				return adapter.JobStatus{State: model.JobStateSucceeded, ResultURL: "u"}, nil
			},
			nil, nil, testLogger(),
		)

		if tick(context.Background()) || tick(context.Background()) {
			t.Fatal("transient errors must not end the loop")
		}
		if h.State != model.JobStatePending {
			t.Fatalf("transient error mutated state: %s", h.State)
		}
		if !tick(context.Background()) {
			t.Fatal("third tick should succeed")
		}
	})

	t.Run("definitive transport error synthesizes failure", func(t *testing.T) {
		h := model.NewJobHandle("job-3", model.JobKindScrape)
		var terminal int
		tick := JobTick(h,
			func(context.Context) (adapter.JobStatus, error) {
				return adapter.JobStatus{}, adapter.Definitive("poll job status", errors.New("backend returned 404"))
			},
			nil,
			func(*model.JobHandle) { terminal++ },
			testLogger(),
		)

		if !tick(context.Background()) {
			t.Fatal("definitive error should end the loop")
		}
		if h.State != model.JobStateFailed {
			t.Fatalf("state = %s, want failed", h.State)
		}
		if h.ErrorMessage == "" {
			t.Error("transport error not recorded as failure message")
		}
		if terminal != 1 {
			t.Fatalf("onTerminal fired %d times, want 1", terminal)
		}
	})

	t.Run("stale regression reports are ignored", func(t *testing.T) {
		h := model.NewJobHandle("job-4", model.JobKindVideo)
		_ = h.Advance(model.JobStateRunning)
		tick := JobTick(h,
			func(context.Context) (adapter.JobStatus, error) {
				return adapter.JobStatus{State: model.JobStatePending}, nil
			},
			nil, nil, testLogger(),
		)
		if tick(context.Background()) {
			t.Fatal("stale pending report should not end the loop")
		}
		if h.State != model.JobStateRunning {
			t.Fatalf("state regressed to %s", h.State)
		}
	})
}
