// Package worker implements the claim-handle-complete loop shared by the
// crawl, summarize and generate stages (C6/C7/C8): a small goroutine pool
// per stage, each claiming one queue item at a time from C5 and routing
// it to a stage-specific Handler.
package worker

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"refnet/internal/core"
	"refnet/internal/logger"
	"refnet/internal/queue"
	"refnet/internal/xerrors"
)

// Handler processes one claimed queue item. A returned error is
// classified and used to decide retry vs. terminal failure; Handler
// implementations are expected to have already updated Paper-level
// status columns before returning.
type Handler interface {
	Handle(ctx context.Context, item *core.QueueItem) error
}

// Config tunes one stage's worker pool.
type Config struct {
	Stage       core.Stage
	Concurrency int
	PollJitter  time.Duration // mean of the random sleep (0.5x to 1.5x) taken when a claim finds nothing pending
	SoftLimit   time.Duration
	HardLimit   time.Duration
	WorkerID    string
}

// Runner drives Concurrency goroutines, each in a claim -> handle ->
// complete loop, until its context is cancelled.
type Runner struct {
	cfg     Config
	queue   *queue.Queue
	handler Handler
	retry   xerrors.RetryPolicy
}

// New constructs a Runner for one stage.
func New(cfg Config, q *queue.Queue, handler Handler, retry xerrors.RetryPolicy) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollJitter <= 0 {
		cfg.PollJitter = time.Second
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = string(cfg.Stage) + "-worker"
	}
	return &Runner{cfg: cfg, queue: q, handler: handler, retry: retry}
}

// Run blocks until ctx is cancelled, fanning out cfg.Concurrency
// goroutines over the claim loop.
func (r *Runner) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		workerID := r.cfg.WorkerID
		if r.cfg.Concurrency > 1 {
			workerID = workerID + "-" + strconv.Itoa(i)
		}
		g.Go(func() error {
			r.loop(gCtx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, workerID string) {
	log := logger.Stage(string(r.cfg.Stage), workerID)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := r.queue.Claim(ctx, r.cfg.Stage, workerID)
		if err != nil {
			log.Error("queue claim failed", "error", err.Error())
			sleepWithJitter(ctx, r.cfg.PollJitter)
			continue
		}
		if item == nil {
			sleepWithJitter(ctx, r.cfg.PollJitter)
			continue
		}

		r.process(ctx, log, item)
	}
}

func (r *Runner) process(ctx context.Context, log *slog.Logger, item *core.QueueItem) {
	limit := r.cfg.HardLimit
	if limit <= 0 {
		limit = 30 * time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	start := time.Now()
	var err error
attemptLoop:
	for attempt := 1; ; attempt++ {
		err = r.handler.Handle(jobCtx, item)
		if err == nil {
			break
		}
		if !r.retry.ShouldRetry(attempt, err) {
			break
		}
		log.Warn("worker job retrying", "item", item.ID, "attempt", attempt, "error", err.Error())
		select {
		case <-jobCtx.Done():
			break attemptLoop
		case <-time.After(r.retry.Wait(attempt)):
		}
	}
	elapsed := time.Since(start)

	if err == nil {
		if cerr := r.queue.Complete(ctx, item.ID, core.QueueCompleted, "", elapsed); cerr != nil {
			log.Error("queue complete failed", "item", item.ID, "error", cerr.Error())
		}
		return
	}

	log.Warn("worker job failed", "item", item.ID, "error", err.Error())
	if cerr := r.queue.Complete(ctx, item.ID, core.QueueFailed, err.Error(), elapsed); cerr != nil {
		log.Error("queue complete failed", "item", item.ID, "error", cerr.Error())
	}
}

func sleepWithJitter(ctx context.Context, base time.Duration) {
	wait := base
	if base > 0 {
		wait = base/2 + time.Duration(rand.Int63n(int64(base)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

