// Package dispatcher implements the periodic control loop (C9): backfills
// queue rows for papers a lost message left stranded, reclaims jobs whose
// lease expired, purges old terminal rows, and recomputes graph statistics.
package dispatcher

import (
	"context"
	"time"

	"refnet/internal/core"
	"refnet/internal/logger"
	"refnet/internal/persistence"
	"refnet/internal/queue"
)

// stagePriority is the enqueue priority used when the dispatcher backfills
// a missing queue row for a stage. Summarize and generate use the same
// priorities the crawl and summarize handlers enqueue them with; crawl
// uses PriorityFloor rather than a CrawlPriority score, since the
// paper's hop is not known here.
var stagePriority = map[core.Stage]int{
	core.StageCrawl:     queue.PriorityFloor,
	core.StageSummarize: 50,
	core.StageGenerate:  30,
}

// Config tunes the dispatcher's tick intervals. Zero values fall back to
// spec defaults.
type Config struct {
	BackfillInterval time.Duration // per-stage missing-row scan, default 1m
	ReclaimInterval  time.Duration // lease-expiry sweep, default 1m
	PurgeInterval    time.Duration // terminal-row retention sweep, default 1h
	StatsInterval    time.Duration // graph_stats recompute, default 5m
	BackfillBatch    int           // rows scanned per stage per tick, default 100
}

// Dispatcher drives the four periodic sweeps described above, each on its
// own ticker. All four run serially from one select loop, so a slow sweep
// delays the others until it returns.
type Dispatcher struct {
	db    persistence.Database
	queue *queue.Queue
	cfg   Config
}

// New constructs a Dispatcher.
func New(db persistence.Database, q *queue.Queue, cfg Config) *Dispatcher {
	if cfg.BackfillInterval <= 0 {
		cfg.BackfillInterval = time.Minute
	}
	if cfg.ReclaimInterval <= 0 {
		cfg.ReclaimInterval = time.Minute
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Hour
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 5 * time.Minute
	}
	if cfg.BackfillBatch <= 0 {
		cfg.BackfillBatch = 100
	}
	return &Dispatcher{db: db, queue: q, cfg: cfg}
}

// Run blocks, driving all four sweeps until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	backfill := time.NewTicker(d.cfg.BackfillInterval)
	reclaim := time.NewTicker(d.cfg.ReclaimInterval)
	purge := time.NewTicker(d.cfg.PurgeInterval)
	stats := time.NewTicker(d.cfg.StatsInterval)
	defer backfill.Stop()
	defer reclaim.Stop()
	defer purge.Stop()
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-backfill.C:
			d.runBackfill(ctx)
		case <-reclaim.C:
			d.runReclaim(ctx)
		case <-purge.C:
			d.runPurge(ctx)
		case <-stats.C:
			d.runStats(ctx)
		}
	}
}

// runBackfill enqueues a queue row for any paper stuck pending on a stage
// with none in flight, recovering from a lost enqueue.
func (d *Dispatcher) runBackfill(ctx context.Context) {
	for _, stage := range []core.Stage{core.StageCrawl, core.StageSummarize} {
		ids, err := d.queue.ListPendingPaperIDs(ctx, stage, "pending", d.cfg.BackfillBatch)
		if err != nil {
			logger.Error("dispatcher backfill scan failed", err, "stage", stage)
			continue
		}
		d.enqueueBackfill(ctx, stage, ids)
	}

	// StageGenerate has no status column of its own to scan "pending"
	// against: pdf_status stays "pending" forever on placeholder papers
	// that were never crawled, which ListPendingPaperIDs can't tell
	// apart from a paper genuinely awaiting its post-summarize generate
	// enqueue. ListGenerateReadyPaperIDs checks the real readiness
	// predicate instead.
	ids, err := d.queue.ListGenerateReadyPaperIDs(ctx, d.cfg.BackfillBatch)
	if err != nil {
		logger.Error("dispatcher backfill scan failed", err, "stage", core.StageGenerate)
		return
	}
	d.enqueueBackfill(ctx, core.StageGenerate, ids)
}

func (d *Dispatcher) enqueueBackfill(ctx context.Context, stage core.Stage, ids []string) {
	for _, id := range ids {
		priority := stagePriority[stage]
		if _, err := d.queue.Enqueue(ctx, id, stage, priority, nil); err != nil {
			logger.Error("dispatcher backfill enqueue failed", err, "stage", stage, "paper", id)
		}
	}
	if len(ids) > 0 {
		logger.Info("dispatcher backfilled missing queue rows", "stage", stage, "count", len(ids))
	}
}

func (d *Dispatcher) runReclaim(ctx context.Context) {
	reclaimed, terminal, err := d.queue.Reclaim(ctx)
	if err != nil {
		logger.Error("dispatcher reclaim failed", err)
		return
	}
	if reclaimed > 0 || terminal > 0 {
		logger.Info("dispatcher reclaim swept stale jobs", "reclaimed", reclaimed, "terminal_failed", terminal)
	}
}

func (d *Dispatcher) runPurge(ctx context.Context) {
	n, err := d.queue.PurgeTerminal(ctx)
	if err != nil {
		logger.Error("dispatcher purge failed", err)
		return
	}
	if n > 0 {
		logger.Info("dispatcher purged terminal queue rows", "count", n)
	}
}

func (d *Dispatcher) runStats(ctx context.Context) {
	if _, err := d.db.Stats().Recompute(ctx); err != nil {
		logger.Error("dispatcher stats recompute failed", err)
	}
}
