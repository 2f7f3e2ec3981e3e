// Package xerrors centralizes the error taxonomy shared by the catalog
// client, PDF fetcher/extractor, summarizer providers, and graph store, plus
// the retry policy workers apply when they see one of these errors.
package xerrors

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Sentinel classes. Every error an external integration returns should wrap
// one of these via fmt.Errorf("...: %w", ...) so callers can classify it
// with errors.Is regardless of the underlying provider.
var (
	// ErrNotFound means the requested resource does not exist upstream.
	// Not retryable.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited means the upstream asked us to slow down. Retryable
	// with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient means a retry is likely to succeed (timeouts, 5xx,
	// connection resets). Retryable.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent means the request itself is invalid and retrying
	// would fail the same way. Not retryable.
	ErrPermanent = errors.New("permanent failure")

	// ErrUnavailable means the resource exists but is not obtainable,
	// e.g. a paper with no open-access PDF. Not retryable.
	ErrUnavailable = errors.New("resource unavailable")

	// ErrStorage wraps a graph store failure (connection, constraint
	// violation, transaction conflict). Retryable.
	ErrStorage = errors.New("storage failure")

	// ErrExtraction wraps a PDF parsing or text-canonicalization
	// failure. Not retryable.
	ErrExtraction = errors.New("extraction failure")
)

// Classify returns the sentinel class err wraps, or ErrPermanent if none
// match. Callers that only need a yes/no retry decision should prefer
// Retryable.
func Classify(err error) error {
	for _, class := range []error{ErrNotFound, ErrRateLimited, ErrTransient, ErrPermanent, ErrUnavailable, ErrStorage, ErrExtraction} {
		if errors.Is(err, class) {
			return class
		}
	}
	return ErrPermanent
}

// Retryable reports whether err belongs to a class worth retrying.
func Retryable(err error) bool {
	switch Classify(err) {
	case ErrRateLimited, ErrTransient, ErrStorage:
		return true
	default:
		return false
	}
}

// RetryPolicy describes exponential backoff with jitter for a worker stage.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Jitter      float64 // fraction of the computed delay to randomize, e.g. 0.2

	// RetryableErrors optionally narrows which sentinel classes this
	// policy retries. A nil slice defers to Retryable.
	RetryableErrors []error
}

// DefaultRetryPolicy mirrors the worker defaults described for crawl and
// summarize stages: five attempts, 1s base, 60s cap, 20% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BackoffBase: time.Second,
		BackoffMax:  60 * time.Second,
		Jitter:      0.2,
	}
}

// ShouldRetry reports whether attempt (1-based, the attempt that just
// failed) should be retried for the given error.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if len(p.RetryableErrors) == 0 {
		return Retryable(err)
	}
	for _, class := range p.RetryableErrors {
		if errors.Is(err, class) {
			return true
		}
	}
	return false
}

// Wait computes the backoff delay before retry number attempt (1-based):
// BackoffBase * 2^(attempt-1), capped at BackoffMax, with +/-Jitter
// randomization.
func (p RetryPolicy) Wait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	delay := base * time.Duration(1<<uint(attempt-1))
	if p.BackoffMax > 0 && delay > p.BackoffMax {
		delay = p.BackoffMax
	}
	if p.Jitter <= 0 {
		return delay
	}
	spread := float64(delay) * p.Jitter
	offset := (rand.Float64()*2 - 1) * spread
	jittered := float64(delay) + offset
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}

// Wrap attaches a sentinel class to err with additional context, e.g.
// Wrap(xerrors.ErrRateLimited, "semantic scholar: %s", resp.Status).
func Wrap(class error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), class)
}
