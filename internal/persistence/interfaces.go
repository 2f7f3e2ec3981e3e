// Package persistence provides the transactional relational Graph Store
// (C4): papers, authors, the citation graph, and the durable processing
// queue.
package persistence

import (
	"context"
	"time"

	"refnet/internal/core"
)

// PaperRepository handles paper persistence operations.
type PaperRepository interface {
	// UpsertPaper creates the paper if absent, otherwise merges non-null
	// fields into the existing row. Always updates updated_at.
	UpsertPaper(ctx context.Context, paper *core.Paper) error

	// Get retrieves a paper by id. It returns (nil, nil) when no such
	// paper exists.
	Get(ctx context.Context, id string) (*core.Paper, error)

	// SetStatus updates exactly one of the paper's three lifecycle
	// status columns (crawl, pdf, summary). errMsg is accepted but not
	// stored; the papers table has no error column.
	SetStatus(ctx context.Context, id string, stage core.Stage, status string, errMsg string) error

	// ListByStatus returns papers whose given stage status matches.
	ListByStatus(ctx context.Context, stage core.Stage, status string, limit int) ([]core.Paper, error)

	// List retrieves papers with pagination.
	List(ctx context.Context, opts ListOptions) ([]core.Paper, error)
}

// AuthorRepository handles author persistence operations.
type AuthorRepository interface {
	// UpsertAuthor creates the author if absent, otherwise merges
	// non-null fields.
	UpsertAuthor(ctx context.Context, author *core.Author) error

	// Get retrieves an author by id.
	Get(ctx context.Context, id string) (*core.Author, error)

	// LinkAuthor idempotently links an author to a paper at a byline
	// position.
	LinkAuthor(ctx context.Context, paperID, authorID string, position int) error

	// GetByPaper returns the authors of a paper, ordered by byline
	// position.
	GetByPaper(ctx context.Context, paperID string) ([]core.Author, error)
}

// RelationRepository handles citation edge persistence operations.
type RelationRepository interface {
	// InsertEdge inserts (source, target, type) if absent; if present,
	// lowers hop_count to the minimum of the stored and new values. No-op
	// (returns nil, no error) when source == target.
	InsertEdge(ctx context.Context, source, target string, relType core.RelationType, hop int) error

	// GetNeighbors returns the in/out edges of a paper, bounded by
	// limit.
	GetNeighbors(ctx context.Context, paperID string, limit int) ([]core.PaperRelation, error)
}

// ExternalIDRepository handles external-catalog cross-reference storage.
type ExternalIDRepository interface {
	UpsertExternalID(ctx context.Context, id core.ExternalID) error
	GetByPaper(ctx context.Context, paperID string) ([]core.ExternalID, error)
}

// KeywordRepository handles keyword persistence operations.
type KeywordRepository interface {
	ReplaceKeywords(ctx context.Context, paperID string, keywords []core.Keyword) error
	GetByPaper(ctx context.Context, paperID string) ([]core.Keyword, error)
}

// VenueRepository handles venue persistence operations.
type VenueRepository interface {
	UpsertVenue(ctx context.Context, venue *core.Venue) error
	Get(ctx context.Context, id string) (*core.Venue, error)
}

// JournalRepository handles journal persistence operations.
type JournalRepository interface {
	UpsertJournal(ctx context.Context, journal *core.Journal) error
	Get(ctx context.Context, id string) (*core.Journal, error)
}

// QueueRepository handles the durable processing queue (C5's backing
// store).
type QueueRepository interface {
	// Enqueue inserts a row, idempotent on (paper_id, task_type,
	// non-terminal): if a pending/running row already exists, no new
	// row is inserted and priority is raised to max(old, new).
	Enqueue(ctx context.Context, item core.QueueItem) (int64, error)

	// Claim atomically picks the highest-priority pending row for
	// stage, ordered by priority desc then created_at asc, and
	// transitions it to running.
	Claim(ctx context.Context, stage core.Stage, workerID string) (*core.QueueItem, error)

	// Complete transitions a running row to completed or failed,
	// recording completed_at and an optional error message. execTime is
	// accepted but not stored; the table has no execution_time column.
	Complete(ctx context.Context, id int64, status core.QueueStatus, errMsg string, execTime time.Duration) error

	// Reclaim reverts rows running past the lease bound back to
	// pending (incrementing retry_count), or to terminal failed when
	// retry_count exceeds max_retries. Returns (reclaimed, terminalFailed) counts.
	Reclaim(ctx context.Context, leaseBound time.Duration) (reclaimed int, terminalFailed int, err error)

	// PurgeTerminal deletes completed/failed rows older than
	// retention.
	PurgeTerminal(ctx context.Context, retention time.Duration) (int, error)

	// ListPendingPaperIDs returns paper ids whose stage status matches
	// and that have no pending or running queue row for stage (completed
	// or failed rows do not exclude a paper) — used by the dispatcher's
	// backfill scan. For
	// StageCrawl and StageSummarize, status is checked against that
	// stage's own status column (crawl_status/summary_status) and
	// "pending" reliably means "never entered this stage". StageGenerate
	// has no generate_status column of its own — use
	// ListGenerateReadyPaperIDs for that stage instead, since pdf_status
	// stays "pending" forever on placeholder papers that were never
	// crawled at all, not just ones awaiting a generate enqueue.
	ListPendingPaperIDs(ctx context.Context, stage core.Stage, status string, limit int) ([]string, error)

	// ListGenerateReadyPaperIDs returns ids of crawled (non-placeholder)
	// papers whose summarize stage has finished one way or another
	// (summary_status completed/failed) or that never needed
	// summarizing (pdf_status unavailable), and that have no live
	// generate queue row — the dispatcher's backfill scan for the
	// generate stage, recovering from a lost post-summarize enqueue.
	ListGenerateReadyPaperIDs(ctx context.Context, limit int) ([]string, error)
}

// GraphStatsRepository handles the recomputed statistics row consumed by
// the generated vault index.
type GraphStatsRepository interface {
	Recompute(ctx context.Context) (core.GraphStats, error)
	Latest(ctx context.Context) (core.GraphStats, error)
}

// ListOptions provides common filtering and pagination options.
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string
	Order  string
}

// Database aggregates all repositories and the connection lifecycle.
type Database interface {
	Papers() PaperRepository
	Authors() AuthorRepository
	Relations() RelationRepository
	ExternalIDs() ExternalIDRepository
	Keywords() KeywordRepository
	Venues() VenueRepository
	Journals() JournalRepository
	Queue() QueueRepository
	Stats() GraphStatsRepository

	Close() error
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction exposing the same
// repository set, scoped to the transaction.
type Transaction interface {
	Commit() error
	Rollback() error

	Papers() PaperRepository
	Authors() AuthorRepository
	Relations() RelationRepository
	ExternalIDs() ExternalIDRepository
	Keywords() KeywordRepository
	Venues() VenueRepository
	Journals() JournalRepository
	Queue() QueueRepository
}
