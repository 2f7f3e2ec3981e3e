package worker

import (
	"context"
	"time"

	"refnet/internal/core"
	"refnet/internal/persistence"
)

// fakeDB is a minimal in-memory persistence.Database used by this
// package's handler tests. It is not safe for concurrent use.
type fakeDB struct {
	papers      map[string]*core.Paper
	authors     map[string]*core.Author
	links       map[string][]core.PaperAuthor
	edges       []core.PaperRelation
	externalIDs map[string][]core.ExternalID
	keywords    map[string][]core.Keyword
	venues      map[string]*core.Venue
	journals    map[string]*core.Journal
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		papers:      make(map[string]*core.Paper),
		authors:     make(map[string]*core.Author),
		links:       make(map[string][]core.PaperAuthor),
		externalIDs: make(map[string][]core.ExternalID),
		keywords:    make(map[string][]core.Keyword),
		venues:      make(map[string]*core.Venue),
		journals:    make(map[string]*core.Journal),
	}
}

func (d *fakeDB) Papers() persistence.PaperRepository           { return &fakePaperRepo{d} }
func (d *fakeDB) Authors() persistence.AuthorRepository         { return &fakeAuthorRepo{d} }
func (d *fakeDB) Relations() persistence.RelationRepository     { return &fakeRelationRepo{d} }
func (d *fakeDB) ExternalIDs() persistence.ExternalIDRepository { return &fakeExternalIDRepo{d} }
func (d *fakeDB) Keywords() persistence.KeywordRepository       { return &fakeKeywordRepo{d} }
func (d *fakeDB) Venues() persistence.VenueRepository           { return &fakeVenueRepo{d} }
func (d *fakeDB) Journals() persistence.JournalRepository       { return &fakeJournalRepo{d} }
func (d *fakeDB) Queue() persistence.QueueRepository            { return nil }
func (d *fakeDB) Stats() persistence.GraphStatsRepository       { return &fakeStatsRepo{d} }
func (d *fakeDB) Close() error                                  { return nil }
func (d *fakeDB) Ping(ctx context.Context) error                { return nil }
func (d *fakeDB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return nil, nil
}

type fakePaperRepo struct{ d *fakeDB }

func (r *fakePaperRepo) UpsertPaper(ctx context.Context, p *core.Paper) error {
	cp := *p
	if existing, ok := r.d.papers[p.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = time.Now().UTC()
	r.d.papers[p.ID] = &cp
	return nil
}

func (r *fakePaperRepo) Get(ctx context.Context, id string) (*core.Paper, error) {
	p, ok := r.d.papers[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaperRepo) SetStatus(ctx context.Context, id string, stage core.Stage, status string, errMsg string) error {
	p, ok := r.d.papers[id]
	if !ok {
		p = &core.Paper{ID: id}
		r.d.papers[id] = p
	}
	switch stage {
	case core.StageCrawl:
		p.CrawlStatus = core.CrawlStatus(status)
	case core.StageSummarize:
		if core.PDFStatus(status) == core.PDFCompleted || core.PDFStatus(status) == core.PDFUnavailable {
			p.PDFStatus = core.PDFStatus(status)
		} else {
			p.SummaryStatus = core.SummaryStatus(status)
		}
	case core.StageGenerate:
		p.PDFStatus = core.PDFStatus(status)
	}
	return nil
}

func (r *fakePaperRepo) ListByStatus(ctx context.Context, stage core.Stage, status string, limit int) ([]core.Paper, error) {
	return nil, nil
}

func (r *fakePaperRepo) List(ctx context.Context, opts persistence.ListOptions) ([]core.Paper, error) {
	out := make([]core.Paper, 0, len(r.d.papers))
	for _, p := range r.d.papers {
		out = append(out, *p)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type fakeAuthorRepo struct{ d *fakeDB }

func (r *fakeAuthorRepo) UpsertAuthor(ctx context.Context, a *core.Author) error {
	r.d.authors[a.ID] = a
	return nil
}
func (r *fakeAuthorRepo) Get(ctx context.Context, id string) (*core.Author, error) {
	return r.d.authors[id], nil
}
func (r *fakeAuthorRepo) LinkAuthor(ctx context.Context, paperID, authorID string, position int) error {
	r.d.links[paperID] = append(r.d.links[paperID], core.PaperAuthor{PaperID: paperID, AuthorID: authorID, Position: position})
	return nil
}
func (r *fakeAuthorRepo) GetByPaper(ctx context.Context, paperID string) ([]core.Author, error) {
	var out []core.Author
	for _, link := range r.d.links[paperID] {
		if a, ok := r.d.authors[link.AuthorID]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeRelationRepo struct{ d *fakeDB }

func (r *fakeRelationRepo) InsertEdge(ctx context.Context, source, target string, relType core.RelationType, hop int) error {
	if source == target {
		return nil
	}
	r.d.edges = append(r.d.edges, core.PaperRelation{Source: source, Target: target, Type: relType, HopCount: hop})
	return nil
}
func (r *fakeRelationRepo) GetNeighbors(ctx context.Context, paperID string, limit int) ([]core.PaperRelation, error) {
	var out []core.PaperRelation
	for _, e := range r.d.edges {
		if e.Source == paperID || e.Target == paperID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeExternalIDRepo struct{ d *fakeDB }

func (r *fakeExternalIDRepo) UpsertExternalID(ctx context.Context, id core.ExternalID) error {
	r.d.externalIDs[id.PaperID] = append(r.d.externalIDs[id.PaperID], id)
	return nil
}
func (r *fakeExternalIDRepo) GetByPaper(ctx context.Context, paperID string) ([]core.ExternalID, error) {
	return r.d.externalIDs[paperID], nil
}

type fakeKeywordRepo struct{ d *fakeDB }

func (r *fakeKeywordRepo) ReplaceKeywords(ctx context.Context, paperID string, keywords []core.Keyword) error {
	r.d.keywords[paperID] = keywords
	return nil
}
func (r *fakeKeywordRepo) GetByPaper(ctx context.Context, paperID string) ([]core.Keyword, error) {
	return r.d.keywords[paperID], nil
}

type fakeVenueRepo struct{ d *fakeDB }

func (r *fakeVenueRepo) UpsertVenue(ctx context.Context, v *core.Venue) error {
	r.d.venues[v.ID] = v
	return nil
}
func (r *fakeVenueRepo) Get(ctx context.Context, id string) (*core.Venue, error) {
	return r.d.venues[id], nil
}

type fakeJournalRepo struct{ d *fakeDB }

func (r *fakeJournalRepo) UpsertJournal(ctx context.Context, j *core.Journal) error {
	r.d.journals[j.ID] = j
	return nil
}
func (r *fakeJournalRepo) Get(ctx context.Context, id string) (*core.Journal, error) {
	return r.d.journals[id], nil
}

type fakeStatsRepo struct{ d *fakeDB }

func (r *fakeStatsRepo) Recompute(ctx context.Context) (core.GraphStats, error) {
	stats := core.GraphStats{PaperCount: len(r.d.papers), ComputedAt: time.Now().UTC()}
	for _, p := range r.d.papers {
		if p.CrawlStatus == core.CrawlCompleted {
			stats.CrawledCount++
		}
		if p.SummaryStatus == core.SummaryCompleted {
			stats.SummarizedCount++
		}
	}
	return stats, nil
}
func (r *fakeStatsRepo) Latest(ctx context.Context) (core.GraphStats, error) {
	return r.Recompute(ctx)
}
