// Package llm talks to the hosted language models that answer legal
// queries: Gemini through the genai SDK and Claude through the Anthropic
// Messages API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Client returns the raw reply text for a request.
type Client interface {
	Answer(ctx context.Context, req Request) (string, error)
	Model() string
}

// Settings are the generation parameters shared by every backend.
type Settings struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// sleep is swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry calls fn until it succeeds, fails permanently or MaxRetries
// retries are spent. The whole call, with its attempt count and outcome, is
// recorded in stats.
func withRetry(ctx context.Context, log *slog.Logger, stats *LLMStats, model string, fn func(context.Context) (string, error)) (out string, err error) {
	start := time.Now()
	attempts := 0
	if stats != nil {
		defer func() {
			stats.Record(Call{
				Latency:  time.Since(start),
				Attempts: attempts,
				Outcome:  outcomeOf(err),
			})
		}()
	}

	for {
		attempts++
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempts > MaxRetries {
			return "", err
		}
		wait := Backoff(attempts - 1)
		log.Warn("llm.retry", "model", model, "attempt", attempts, "wait_ms", wait.Milliseconds(), "error", err)
		if serr := sleep(ctx, wait); serr != nil {
			return "", serr
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
