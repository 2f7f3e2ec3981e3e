// Package ingress implements the single entry point into the crawl (C10):
// seeding a Paper placeholder and enqueuing its first crawl job at max
// priority.
package ingress

import (
	"context"

	"refnet/internal/core"
	"refnet/internal/persistence"
	"refnet/internal/queue"
	"refnet/internal/xerrors"
)

// maxPriority is the priority assigned to a seed's initial crawl job: a
// seed always outranks any job discovered by recursion.
const maxPriority = 100

// Result carries what a caller needs to poll a started crawl.
type Result struct {
	PaperID string
	TaskID  int64
}

// Ingress seeds new crawls.
type Ingress struct {
	db    persistence.Database
	queue *queue.Queue
}

// New constructs an Ingress.
func New(db persistence.Database, q *queue.Queue) *Ingress {
	return &Ingress{db: db, queue: q}
}

// Start creates a placeholder Paper for seedID (all statuses pending) if
// one does not already exist, and enqueues its crawl job at max priority
// with hop_count=0. maxHops bounds the recursion depth threaded through
// every descendant crawl job.
func (i *Ingress) Start(ctx context.Context, seedID string, maxHops int) (Result, error) {
	if seedID == "" {
		return Result{}, xerrors.Wrap(xerrors.ErrPermanent, "ingress: seed id is required")
	}
	if maxHops <= 0 {
		maxHops = 2
	}

	existing, err := i.db.Papers().Get(ctx, seedID)
	if err != nil {
		return Result{}, xerrors.Wrap(xerrors.ErrStorage, "ingress: load seed: %v", err)
	}
	if existing == nil {
		placeholder := &core.Paper{
			ID:            seedID,
			CrawlStatus:   core.CrawlPending,
			PDFStatus:     core.PDFPending,
			SummaryStatus: core.SummaryPending,
		}
		if err := i.db.Papers().UpsertPaper(ctx, placeholder); err != nil {
			return Result{}, xerrors.Wrap(xerrors.ErrStorage, "ingress: create seed placeholder: %v", err)
		}
	}

	taskID, err := i.queue.Enqueue(ctx, seedID, core.StageCrawl, maxPriority, map[string]any{"hop": 0, "max_hops": maxHops})
	if err != nil {
		return Result{}, xerrors.Wrap(xerrors.ErrStorage, "ingress: enqueue seed crawl: %v", err)
	}

	return Result{PaperID: seedID, TaskID: taskID}, nil
}

// Status is the per-paper polling view returned by the collaborator's GET
// contract.
type Status struct {
	PaperID       string `json:"paper_id"`
	CrawlStatus   string `json:"crawl_status"`
	PDFStatus     string `json:"pdf_status"`
	SummaryStatus string `json:"summary_status"`
}

// Status returns the current lifecycle of a previously started paper.
func (i *Ingress) Status(ctx context.Context, paperID string) (Status, error) {
	p, err := i.db.Papers().Get(ctx, paperID)
	if err != nil {
		return Status{}, xerrors.Wrap(xerrors.ErrStorage, "ingress: load paper: %v", err)
	}
	if p == nil {
		return Status{}, xerrors.Wrap(xerrors.ErrNotFound, "ingress: paper %s not found", paperID)
	}
	return Status{
		PaperID:       p.ID,
		CrawlStatus:   string(p.CrawlStatus),
		PDFStatus:     string(p.PDFStatus),
		SummaryStatus: string(p.SummaryStatus),
	}, nil
}
