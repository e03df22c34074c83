package llm

import (
	"testing"
	"time"
)

// fixedClock lets a test move time without sleeping.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTestStats(window time.Duration) (*LLMStats, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
	s := NewLLMStats(window)
	s.now = clock.now
	return s, clock
}

func TestLLMStats_OutcomesAndAttempts(t *testing.T) {
	s, _ := newTestStats(time.Hour)
	s.Record(Call{Latency: 100 * time.Millisecond, Attempts: 1, Outcome: OutcomeOK})
	s.Record(Call{Latency: 900 * time.Millisecond, Attempts: 3, Outcome: OutcomeOK})
	s.Record(Call{Latency: 2 * time.Second, Attempts: 4, Outcome: OutcomeRetryable})
	s.Record(Call{Latency: 50 * time.Millisecond, Attempts: 1, Outcome: OutcomePermanent})

	snap := s.Snapshot()
	if snap.Count != 4 || snap.OK != 2 || snap.RetryableFailures != 1 || snap.PermanentFailures != 1 {
		t.Fatalf("unexpected outcome counts: %+v", snap)
	}
	if snap.Attempts != 9 || snap.Retries != 5 {
		t.Errorf("attempts=%d retries=%d, want 9 and 5", snap.Attempts, snap.Retries)
	}
	if snap.WindowSeconds != 3600 {
		t.Errorf("window_seconds = %d", snap.WindowSeconds)
	}
}

func TestLLMStats_NearestRankLatency(t *testing.T) {
	s, _ := newTestStats(time.Hour)
	for _, ms := range []int64{500, 100, 400, 200, 300} {
		s.Record(Call{Latency: time.Duration(ms) * time.Millisecond, Outcome: OutcomeOK})
	}

	snap := s.Snapshot()
	tests := []struct {
		name      string
		got, want float64
	}{
		{"min", float64(snap.MinMs), 100},
		{"max", float64(snap.MaxMs), 500},
		{"avg", snap.AvgMs, 300},
		{"p50", snap.P50Ms, 300},
		{"p95", snap.P95Ms, 500},
		{"p99", snap.P99Ms, 500},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLLMStats_WindowExpiry(t *testing.T) {
	s, clock := newTestStats(10 * time.Minute)
	s.Record(Call{Latency: time.Second, Outcome: OutcomePermanent})
	clock.t = clock.t.Add(5 * time.Minute)
	s.Record(Call{Latency: 2 * time.Second, Outcome: OutcomeOK})

	clock.t = clock.t.Add(6 * time.Minute)
	snap := s.Snapshot()
	if snap.Count != 1 || snap.OK != 1 || snap.PermanentFailures != 0 {
		t.Fatalf("expected only the later call, got %+v", snap)
	}

	clock.t = clock.t.Add(time.Hour)
	if snap := s.Snapshot(); snap.Count != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected empty window, got %+v", snap)
	}
}

func TestLLMStats_RecordNormalisesInput(t *testing.T) {
	s, _ := newTestStats(time.Hour)
	s.Record(Call{Latency: -time.Second})

	snap := s.Snapshot()
	if snap.Count != 1 || snap.Attempts != 1 || snap.PermanentFailures != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.MinMs != 0 {
		t.Errorf("negative latency should clamp to 0, got %d", snap.MinMs)
	}
}

func TestOutcomeOf(t *testing.T) {
	if outcomeOf(nil) != OutcomeOK {
		t.Error("nil error should be ok")
	}
	if outcomeOf(&RetryableError{StatusCode: 529}) != OutcomeRetryable {
		t.Error("retryable error should be retryable")
	}
	if outcomeOf(errString("400")) != OutcomePermanent {
		t.Error("plain error should be permanent")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
