package worker

import (
	"context"
	"errors"
	"time"

	"refnet/internal/catalog"
	"refnet/internal/core"
	"refnet/internal/persistence"
	"refnet/internal/queue"
	"refnet/internal/xerrors"
)

// CrawlParams is the decoded shape of a crawl queue item's Parameters.
type CrawlParams struct {
	Hop     int `json:"hop"`
	MaxHops int `json:"max_hops"`
}

// CrawlHandler implements the crawl stage (C6): fetch paper metadata and
// citation/reference neighbors from the catalog, persist the graph, and
// fan out further crawl jobs bounded by the priority predicate.
type CrawlHandler struct {
	DB             persistence.Database
	Catalog        *catalog.Client
	Queue          *queue.Queue
	NeighborLimit  int
	StalenessWindow time.Duration
}

// Handle processes one crawl queue item.
func (h *CrawlHandler) Handle(ctx context.Context, item *core.QueueItem) error {
	paperID := item.PaperID
	hop, maxHops := crawlParams(item)

	if err := h.DB.Papers().SetStatus(ctx, paperID, core.StageCrawl, string(core.CrawlRunning), ""); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "crawl: set running: %v", err)
	}

	existing, _ := h.DB.Papers().Get(ctx, paperID)
	if existing != nil && existing.CrawlStatus == core.CrawlCompleted && fresh(existing.LastCrawledAt, h.stalenessWindow()) {
		return h.advance(ctx, existing, hop, maxHops)
	}

	paper, err := h.Catalog.GetPaper(ctx, paperID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageCrawl, string(core.CrawlFailed), "not_found")
			return nil
		}
		_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageCrawl, string(core.CrawlFailed), err.Error())
		return err
	}

	if err := h.persistPaper(ctx, paper); err != nil {
		_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageCrawl, string(core.CrawlFailed), err.Error())
		return err
	}

	if hop < maxHops {
		if err := h.expandNeighbors(ctx, paperID, hop, maxHops); err != nil {
			_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageCrawl, string(core.CrawlFailed), err.Error())
			return err
		}
	}

	now := time.Now().UTC()
	paper.Paper.LastCrawledAt = &now
	if err := h.DB.Papers().UpsertPaper(ctx, &paper.Paper); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "crawl: stamp last_crawled_at: %v", err)
	}
	if err := h.DB.Papers().SetStatus(ctx, paperID, core.StageCrawl, string(core.CrawlCompleted), ""); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "crawl: set completed: %v", err)
	}

	return h.advance(ctx, &paper.Paper, hop, maxHops)
}

// advance enqueues the next stage: summarize when a PDF URL is known,
// otherwise generate straight away.
func (h *CrawlHandler) advance(ctx context.Context, p *core.Paper, hop, maxHops int) error {
	if p.PDFURL != "" {
		if _, err := h.Queue.Enqueue(ctx, p.ID, core.StageSummarize, 50, nil); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: enqueue summarize: %v", err)
		}
	} else {
		if _, err := h.Queue.Enqueue(ctx, p.ID, core.StageGenerate, 30, map[string]any{"hop": hop, "max_hops": maxHops}); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: enqueue generate: %v", err)
		}
	}
	return nil
}

func (h *CrawlHandler) persistPaper(ctx context.Context, cp catalog.CatalogPaper) error {
	if err := h.DB.Papers().UpsertPaper(ctx, &cp.Paper); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "crawl: upsert paper: %v", err)
	}
	if cp.VenueName != "" && cp.Paper.VenueID != "" {
		if err := h.DB.Venues().UpsertVenue(ctx, &core.Venue{ID: cp.Paper.VenueID, Name: cp.VenueName, Type: cp.VenueType}); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: upsert venue: %v", err)
		}
	}
	if cp.JournalName != "" {
		journalID := cp.Paper.JournalID
		if journalID == "" {
			journalID = cp.Paper.ID + "-journal"
		}
		cp.Paper.JournalID = journalID
		if err := h.DB.Journals().UpsertJournal(ctx, &core.Journal{ID: journalID, Name: cp.JournalName}); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: upsert journal: %v", err)
		}
	}
	for authorID, name := range cp.AuthorNames {
		if err := h.DB.Authors().UpsertAuthor(ctx, &core.Author{ID: authorID, Name: name}); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: upsert author: %v", err)
		}
		if err := h.DB.Authors().LinkAuthor(ctx, cp.Paper.ID, authorID, 0); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: link author: %v", err)
		}
	}
	for idType, value := range cp.ExternalIDs {
		if value == "" {
			continue
		}
		id := core.ExternalID{PaperID: cp.Paper.ID, IDType: core.ExternalIDType(idType), ExternalID: value}
		if err := h.DB.ExternalIDs().UpsertExternalID(ctx, id); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: upsert external id: %v", err)
		}
	}
	return nil
}

func (h *CrawlHandler) expandNeighbors(ctx context.Context, paperID string, hop, maxHops int) error {
	limit := h.NeighborLimit
	if limit <= 0 {
		limit = 100
	}

	citations, err := h.Catalog.GetCitations(ctx, paperID, limit, 0)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrTransient, "crawl: fetch citations: %v", err)
	}
	references, err := h.Catalog.GetReferences(ctx, paperID, limit, 0)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrTransient, "crawl: fetch references: %v", err)
	}

	if err := h.linkNeighbors(ctx, citations, paperID, core.RelationCitation, hop, maxHops); err != nil {
		return err
	}
	return h.linkNeighbors(ctx, references, paperID, core.RelationReference, hop, maxHops)
}

// linkNeighbors inserts the edge and placeholder Paper for each neighbor,
// then evaluates the recursion predicate.
//
// For a citation, the neighbor cites paperID (edge neighbor -> paperID);
// for a reference, paperID cites the neighbor (edge paperID -> neighbor).
func (h *CrawlHandler) linkNeighbors(ctx context.Context, neighbors []catalog.CatalogPaper, paperID string, relType core.RelationType, hop, maxHops int) error {
	for _, n := range neighbors {
		if n.Paper.ID == "" || n.Paper.ID == paperID {
			continue // self-citations are discarded silently
		}

		source, target := paperID, n.Paper.ID
		if relType == core.RelationCitation {
			source, target = n.Paper.ID, paperID
		}
		if err := h.DB.Relations().InsertEdge(ctx, source, target, relType, hop+1); err != nil {
			return xerrors.Wrap(xerrors.ErrStorage, "crawl: insert edge: %v", err)
		}

		existing, _ := h.DB.Papers().Get(ctx, n.Paper.ID)
		if existing == nil {
			placeholder := n.Paper
			placeholder.CrawlStatus = core.CrawlPending
			placeholder.PDFStatus = core.PDFPending
			placeholder.SummaryStatus = core.SummaryPending
			if err := h.DB.Papers().UpsertPaper(ctx, &placeholder); err != nil {
				return xerrors.Wrap(xerrors.ErrStorage, "crawl: upsert placeholder: %v", err)
			}
		}

		priority := queue.CrawlPriority(hop+1, maxHops, n.Paper.CitationCount)
		if queue.ShouldRecurse(priority) {
			params := map[string]any{"hop": hop + 1, "max_hops": maxHops}
			if _, err := h.Queue.Enqueue(ctx, n.Paper.ID, core.StageCrawl, priority, params); err != nil {
				return xerrors.Wrap(xerrors.ErrStorage, "crawl: enqueue neighbor: %v", err)
			}
		}
	}
	return nil
}

func (h *CrawlHandler) stalenessWindow() time.Duration {
	if h.StalenessWindow <= 0 {
		return 7 * 24 * time.Hour
	}
	return h.StalenessWindow
}

func fresh(t *time.Time, window time.Duration) bool {
	return t != nil && time.Since(*t) < window
}

func crawlParams(item *core.QueueItem) (hop, maxHops int) {
	maxHops = 2
	if item.Parameters == nil {
		return 0, maxHops
	}
	if v, ok := item.Parameters["hop"]; ok {
		hop = asInt(v)
	}
	if v, ok := item.Parameters["max_hops"]; ok {
		if n := asInt(v); n > 0 {
			maxHops = n
		}
	}
	return hop, maxHops
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
