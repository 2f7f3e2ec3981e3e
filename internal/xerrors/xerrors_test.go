package xerrors

import (
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	wrapped := Wrap(ErrRateLimited, "catalog: %s", "429")
	if Classify(wrapped) != ErrRateLimited {
		t.Errorf("expected ErrRateLimited, got %v", Classify(wrapped))
	}

	unknown := errors.New("something else")
	if Classify(unknown) != ErrPermanent {
		t.Errorf("expected unclassified errors to default to ErrPermanent")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrRateLimited, true},
		{ErrTransient, true},
		{ErrStorage, true},
		{ErrNotFound, false},
		{ErrPermanent, false},
		{ErrUnavailable, false},
		{ErrExtraction, false},
	}

	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRetryPolicyShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()

	if !policy.ShouldRetry(1, ErrTransient) {
		t.Errorf("expected attempt 1 with transient error to retry")
	}
	if policy.ShouldRetry(policy.MaxAttempts, ErrTransient) {
		t.Errorf("expected attempt at MaxAttempts to not retry")
	}
	if policy.ShouldRetry(1, ErrNotFound) {
		t.Errorf("expected not-found error to never retry")
	}
}

func TestRetryPolicyShouldRetryNarrowedClasses(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:     3,
		BackoffBase:     time.Second,
		BackoffMax:      time.Minute,
		RetryableErrors: []error{ErrRateLimited},
	}

	if !policy.ShouldRetry(1, ErrRateLimited) {
		t.Errorf("expected rate limited error to retry under narrowed policy")
	}
	if policy.ShouldRetry(1, ErrTransient) {
		t.Errorf("expected transient error to not retry when excluded from RetryableErrors")
	}
}

func TestRetryPolicyWait(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BackoffBase: time.Second,
		BackoffMax:  10 * time.Second,
		Jitter:      0.5,
	}

	for attempt := 1; attempt <= 5; attempt++ {
		wait := policy.Wait(attempt)
		if wait < 0 {
			t.Errorf("attempt %d: expected non-negative wait, got %v", attempt, wait)
		}
		if wait > policy.BackoffMax+time.Duration(float64(policy.BackoffMax)*policy.Jitter) {
			t.Errorf("attempt %d: wait %v exceeds expected cap", attempt, wait)
		}
	}
}

func TestRetryPolicyWaitNoJitterIsDeterministic(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BackoffBase: time.Second,
		BackoffMax:  time.Minute,
	}

	if got := policy.Wait(1); got != time.Second {
		t.Errorf("expected 1s for attempt 1, got %v", got)
	}
	if got := policy.Wait(2); got != 2*time.Second {
		t.Errorf("expected 2s for attempt 2, got %v", got)
	}
	if got := policy.Wait(10); got != policy.BackoffMax {
		t.Errorf("expected wait to cap at BackoffMax, got %v", got)
	}
}
