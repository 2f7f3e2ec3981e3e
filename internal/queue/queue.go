package queue

import (
	"context"
	"time"

	"refnet/internal/core"
	"refnet/internal/persistence"
)

// Queue wraps the Graph Store's processing_queue repository with the
// enqueue/claim/complete/reclaim contract, keeping stage defaults (max
// retries, lease duration, retention) in one place.
type Queue struct {
	repo       persistence.QueueRepository
	maxRetries int
	lease      time.Duration
	retention  time.Duration
}

// Config carries the tunables pulled from the worker/queue config
// sections.
type Config struct {
	MaxRetries int
	Lease      time.Duration
	Retention  time.Duration
}

// New constructs a Queue backed by repo.
func New(repo persistence.QueueRepository, cfg Config) *Queue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 60 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &Queue{repo: repo, maxRetries: cfg.MaxRetries, lease: cfg.Lease, retention: cfg.Retention}
}

// Enqueue inserts a job for paperID at stage with the given priority and
// parameters. Idempotent on (paper, stage, non-terminal): a live row's
// priority is raised to the max of old and new rather than duplicated.
func (q *Queue) Enqueue(ctx context.Context, paperID string, stage core.Stage, priority int, params map[string]any) (int64, error) {
	item := core.QueueItem{
		PaperID:    paperID,
		TaskType:   stage,
		Priority:   priority,
		MaxRetries: q.maxRetries,
		Parameters: params,
	}
	return q.repo.Enqueue(ctx, item)
}

// Claim atomically picks the highest-priority pending job for stage and
// marks it running under workerID. Returns (nil, nil) when the stage has
// no pending work.
func (q *Queue) Claim(ctx context.Context, stage core.Stage, workerID string) (*core.QueueItem, error) {
	return q.repo.Claim(ctx, stage, workerID)
}

// Complete transitions a running job to its terminal outcome for this
// attempt.
func (q *Queue) Complete(ctx context.Context, id int64, status core.QueueStatus, errMsg string, execTime time.Duration) error {
	return q.repo.Complete(ctx, id, status, errMsg, execTime)
}

// Reclaim requeues jobs whose lease has expired, incrementing
// retry_count, or marks them terminally failed once retry_count exceeds
// max_retries.
func (q *Queue) Reclaim(ctx context.Context) (reclaimed int, terminalFailed int, err error) {
	return q.repo.Reclaim(ctx, q.lease)
}

// PurgeTerminal deletes completed/failed rows older than the configured
// retention window.
func (q *Queue) PurgeTerminal(ctx context.Context) (int, error) {
	return q.repo.PurgeTerminal(ctx, q.retention)
}

// ListPendingPaperIDs returns paper ids with the given stage status but
// no pending or running queue row — the dispatcher's backfill scan uses this to
// recover from lost enqueue messages.
func (q *Queue) ListPendingPaperIDs(ctx context.Context, stage core.Stage, status string, limit int) ([]string, error) {
	return q.repo.ListPendingPaperIDs(ctx, stage, status, limit)
}

// ListGenerateReadyPaperIDs returns ids of crawled papers ready for the
// generate stage (summarize finished or was skipped) with no live
// generate queue row — see QueueRepository.ListGenerateReadyPaperIDs.
func (q *Queue) ListGenerateReadyPaperIDs(ctx context.Context, limit int) ([]string, error) {
	return q.repo.ListGenerateReadyPaperIDs(ctx, limit)
}
