package llm

import (
	"math"
	"slices"
	"sync"
	"time"
)

// Outcome is how an Answer call ended after retries.
type Outcome string

const (
	OutcomeOK Outcome = "ok"
	// OutcomeRetryable means the call gave up on a transient failure
	// (rate limit, overload, timeout).
	OutcomeRetryable Outcome = "retryable"
	OutcomePermanent Outcome = "permanent"
)

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case IsRetryable(err):
		return OutcomeRetryable
	default:
		return OutcomePermanent
	}
}

// Call is one Answer invocation. Latency spans every attempt and the
// backoff between them. Record stamps At.
type Call struct {
	At       time.Time
	Latency  time.Duration
	Attempts int
	Outcome  Outcome
}

// StatsSnapshot aggregates the calls inside the window. Latency fields are
// in milliseconds and use nearest-rank percentiles.
type StatsSnapshot struct {
	WindowSeconds     int64   `json:"window_seconds"`
	Count             int     `json:"count"`
	OK                int     `json:"ok"`
	RetryableFailures int     `json:"retryable_failures"`
	PermanentFailures int     `json:"permanent_failures"`
	Attempts          int     `json:"attempts"`
	Retries           int     `json:"retries"`
	MinMs             int64   `json:"min_ms"`
	MaxMs             int64   `json:"max_ms"`
	AvgMs             float64 `json:"avg_ms"`
	P50Ms             float64 `json:"p50_ms"`
	P95Ms             float64 `json:"p95_ms"`
	P99Ms             float64 `json:"p99_ms"`
}

// LLMStats keeps the LLM calls of a rolling window.
type LLMStats struct {
	mu     sync.Mutex
	calls  []Call // ordered by At
	window time.Duration
	now    func() time.Time
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{window: window, now: time.Now}
}

// Record adds a call as finishing now. Fewer than one attempt counts as one.
func (s *LLMStats) Record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c.At = now
	if c.Latency < 0 {
		c.Latency = 0
	}
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Outcome == "" {
		c.Outcome = OutcomePermanent
	}
	s.expireLocked(now)
	s.calls = append(s.calls, c)
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	snap := StatsSnapshot{WindowSeconds: int64(s.window / time.Second), Count: len(s.calls)}
	if len(s.calls) == 0 {
		return snap
	}

	ms := make([]int64, len(s.calls))
	var total int64
	for i, c := range s.calls {
		switch c.Outcome {
		case OutcomeOK:
			snap.OK++
		case OutcomeRetryable:
			snap.RetryableFailures++
		default:
			snap.PermanentFailures++
		}
		snap.Attempts += c.Attempts
		ms[i] = c.Latency.Milliseconds()
		total += ms[i]
	}
	snap.Retries = snap.Attempts - snap.Count
	slices.Sort(ms)

	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(total) / float64(len(ms))
	snap.P50Ms = nearestRank(ms, 50)
	snap.P95Ms = nearestRank(ms, 95)
	snap.P99Ms = nearestRank(ms, 99)
	return snap
}

// expireLocked drops calls older than the window.
func (s *LLMStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i, _ := slices.BinarySearchFunc(s.calls, cutoff, func(c Call, t time.Time) int {
		return c.At.Compare(t)
	})
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

// nearestRank returns the smallest value with at least pct percent of
// sorted at or below it.
func nearestRank(sorted []int64, pct float64) float64 {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return float64(sorted[rank-1])
}
