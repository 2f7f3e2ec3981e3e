package commands

import (
	"time"

	"refnet/internal/config"
	"refnet/internal/queue"
	"refnet/internal/xerrors"
)

// queueConfig translates the queue section of config into queue.Config,
// falling back to the queue package's own defaults on a bad duration.
func queueConfig(cfg *config.Config) queue.Config {
	lease, _ := time.ParseDuration(cfg.Queue.LeaseDuration)
	retention, _ := time.ParseDuration(cfg.Queue.Retention)
	return queue.Config{
		MaxRetries: cfg.Retry.MaxAttempts,
		Lease:      lease,
		Retention:  retention,
	}
}

// retryPolicy translates the retry section of config into an
// xerrors.RetryPolicy, falling back to DefaultRetryPolicy on zero values.
func retryPolicy(cfg *config.Config) xerrors.RetryPolicy {
	policy := xerrors.DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BackoffBaseMs > 0 {
		policy.BackoffBase = time.Duration(cfg.Retry.BackoffBaseMs) * time.Millisecond
	}
	if cfg.Retry.BackoffMaxMs > 0 {
		policy.BackoffMax = time.Duration(cfg.Retry.BackoffMaxMs) * time.Millisecond
	}
	return policy
}
