package worker

import (
	"context"
	"time"

	"refnet/internal/core"
	"refnet/internal/persistence"
	"refnet/internal/queue"
	"refnet/internal/render"
	"refnet/internal/xerrors"
)

// maxFollowUpCrawls bounds how many unseen references a single generate
// run will schedule follow-up crawl jobs for, to avoid a burst.
const maxFollowUpCrawls = 5

// followUpDelay is the minimum wait before a follow-up crawl job becomes
// claimable, simulated with an in-process sleep before Enqueue since the
// queue has no native delayed-enqueue primitive.
const followUpDelay = 10 * time.Second

// GenerateHandler implements the generate stage (C8): renders a paper's
// Markdown, refreshes the vault index and viewer config, and may
// schedule follow-up crawls for unseen references.
type GenerateHandler struct {
	DB            persistence.Database
	Queue         *queue.Queue
	VaultDir      string
	NeighborLimit int
}

func (h *GenerateHandler) Handle(ctx context.Context, item *core.QueueItem) error {
	paperID := item.PaperID
	hop, maxHops := crawlParams(item)

	paper, err := h.DB.Papers().Get(ctx, paperID)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: load paper: %v", err)
	}
	if paper == nil {
		return xerrors.Wrap(xerrors.ErrNotFound, "generate: paper %s not found", paperID)
	}

	view, err := h.buildView(ctx, paper)
	if err != nil {
		return err
	}

	if err := render.WritePaper(h.VaultDir, view); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: write paper markdown: %v", err)
	}

	if err := h.refreshIndex(ctx); err != nil {
		return err
	}
	if err := render.WriteViewerConfig(h.VaultDir); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: write viewer config: %v", err)
	}

	if err := h.scheduleFollowUpCrawls(ctx, view, hop, maxHops); err != nil {
		return err
	}

	return nil
}

func (h *GenerateHandler) buildView(ctx context.Context, paper *core.Paper) (render.PaperView, error) {
	limit := h.NeighborLimit
	if limit <= 0 {
		limit = 500
	}

	authors, err := h.DB.Authors().GetByPaper(ctx, paper.ID)
	if err != nil {
		return render.PaperView{}, xerrors.Wrap(xerrors.ErrStorage, "generate: load authors: %v", err)
	}
	keywords, err := h.DB.Keywords().GetByPaper(ctx, paper.ID)
	if err != nil {
		return render.PaperView{}, xerrors.Wrap(xerrors.ErrStorage, "generate: load keywords: %v", err)
	}
	externalIDs, err := h.DB.ExternalIDs().GetByPaper(ctx, paper.ID)
	if err != nil {
		return render.PaperView{}, xerrors.Wrap(xerrors.ErrStorage, "generate: load external ids: %v", err)
	}
	edges, err := h.DB.Relations().GetNeighbors(ctx, paper.ID, limit)
	if err != nil {
		return render.PaperView{}, xerrors.Wrap(xerrors.ErrStorage, "generate: load neighbors: %v", err)
	}

	view := render.PaperView{
		Paper:       *paper,
		Authors:     authors,
		Keywords:    keywords,
		ExternalIDs: externalIDs,
	}
	for _, e := range edges {
		switch {
		case e.Type == core.RelationCitation && e.Target == paper.ID:
			view.Citations = append(view.Citations, e)
		case e.Type == core.RelationReference && e.Source == paper.ID:
			view.References = append(view.References, e)
		}
	}

	if paper.VenueID != "" {
		if venue, err := h.DB.Venues().Get(ctx, paper.VenueID); err == nil && venue != nil {
			view.VenueName = venue.Name
		}
	}
	if paper.JournalID != "" {
		if journal, err := h.DB.Journals().Get(ctx, paper.JournalID); err == nil && journal != nil {
			view.JournalName = journal.Name
		}
	}

	return view, nil
}

func (h *GenerateHandler) refreshIndex(ctx context.Context) error {
	stats, err := h.DB.Stats().Recompute(ctx)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: recompute stats: %v", err)
	}

	topCited, err := h.DB.Papers().List(ctx, persistence.ListOptions{Limit: 10, SortBy: "citation_count", Order: "desc"})
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: list top cited: %v", err)
	}
	recent, err := h.DB.Papers().List(ctx, persistence.ListOptions{Limit: 10, SortBy: "created_at", Order: "desc"})
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: list recent: %v", err)
	}
	all, err := h.DB.Papers().List(ctx, persistence.ListOptions{Limit: 0})
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: list all for histogram: %v", err)
	}

	histogram := make(map[int]int)
	for _, p := range all {
		if p.Year != nil {
			histogram[*p.Year]++
		}
	}

	data := render.IndexData{Stats: stats, YearHistogram: histogram, TopCited: topCited, MostRecent: recent}
	if err := render.WriteIndex(h.VaultDir, data); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "generate: write index: %v", err)
	}
	return nil
}

// scheduleFollowUpCrawls enqueues crawl jobs for references that are
// still unseen placeholders, bounded by maxFollowUpCrawls. This path
// overlaps with the crawl worker's own neighbor fan-out by design; both
// are kept, but either alone would suffice to eventually reach every
// reachable paper.
func (h *GenerateHandler) scheduleFollowUpCrawls(ctx context.Context, view render.PaperView, hop, maxHops int) error {
	if hop >= maxHops {
		return nil
	}

	scheduled := 0
	for _, ref := range view.References {
		if scheduled >= maxFollowUpCrawls {
			break
		}
		neighbor, err := h.DB.Papers().Get(ctx, ref.Target)
		if err != nil || neighbor == nil {
			continue
		}
		if neighbor.CrawlStatus != core.CrawlPending || !isPlaceholder(neighbor) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(followUpDelay):
		}

		params := map[string]any{"hop": hop + 1, "max_hops": maxHops}
		if _, err := h.Queue.Enqueue(ctx, neighbor.ID, core.StageCrawl, queue.PriorityFloor, params); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "generate: enqueue follow-up crawl: %v", err)
		}
		scheduled++
	}
	return nil
}

// isPlaceholder reports whether a Paper row was created only as an edge
// endpoint and never actually crawled (title still empty).
func isPlaceholder(p *core.Paper) bool {
	return p.Title == ""
}
