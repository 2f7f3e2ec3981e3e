// Package core defines the domain model shared across the crawl, summarize,
// generate and dispatch stages: papers, authors, the citation graph, and the
// durable processing queue.
package core

import "time"

// CrawlStatus, PDFStatus and SummaryStatus are the three independent
// per-paper lifecycle fields. They share a common terminal-state vocabulary;
// PDFStatus additionally allows "unavailable" for papers with no fetchable
// PDF.
type CrawlStatus string

const (
	CrawlPending   CrawlStatus = "pending"
	CrawlRunning   CrawlStatus = "running"
	CrawlCompleted CrawlStatus = "completed"
	CrawlFailed    CrawlStatus = "failed"
)

type PDFStatus string

const (
	PDFPending     PDFStatus = "pending"
	PDFRunning     PDFStatus = "running"
	PDFCompleted   PDFStatus = "completed"
	PDFFailed      PDFStatus = "failed"
	PDFUnavailable PDFStatus = "unavailable"
)

type SummaryStatus string

const (
	SummaryPending   SummaryStatus = "pending"
	SummaryRunning   SummaryStatus = "running"
	SummaryCompleted SummaryStatus = "completed"
	SummaryFailed    SummaryStatus = "failed"
)

// Stage discriminates the three queue task types.
type Stage string

const (
	StageCrawl     Stage = "crawl"
	StageSummarize Stage = "summarize"
	StageGenerate  Stage = "generate"
)

// QueueStatus is the lifecycle of a single ProcessingQueue row.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueRunning   QueueStatus = "running"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
)

// RelationType discriminates a PaperRelation edge: whether Target cites
// Source, or Source cites Target.
type RelationType string

const (
	RelationCitation  RelationType = "citation"
	RelationReference RelationType = "reference"
)

// Paper is a single node in the citation graph.
type Paper struct {
	ID             string `json:"id"` // opaque external catalog id
	Title          string `json:"title"`
	Abstract       string `json:"abstract"`
	Year           *int   `json:"year,omitempty"` // nil, or in [1900, 2100]
	CitationCount  int    `json:"citation_count"`
	ReferenceCount int    `json:"reference_count"`
	InfluenceScore *float64 `json:"influence_score,omitempty"`
	OpenAccess     bool     `json:"open_access"`
	Language       string   `json:"language"`

	PDFURL  string `json:"pdf_url"`
	PDFHash string `json:"pdf_hash"` // sha256 of fetched PDF bytes
	PDFSize int64  `json:"pdf_size"`

	Summary          string     `json:"summary"`
	SummaryModel     string     `json:"summary_model"`
	SummaryCreatedAt *time.Time `json:"summary_created_at,omitempty"`

	VenueID   string `json:"venue_id,omitempty"`
	JournalID string `json:"journal_id,omitempty"`

	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`

	CrawlStatus   CrawlStatus   `json:"crawl_status"`
	PDFStatus     PDFStatus     `json:"pdf_status"`
	SummaryStatus SummaryStatus `json:"summary_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Author is a contributor to one or more papers.
type Author struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PaperCount    int    `json:"paper_count"`
	CitationCount int    `json:"citation_count"`
	HIndex        int    `json:"h_index"`
	ORCID         string `json:"orcid,omitempty"`
}

// PaperAuthor is an ordered paper<->author link. (PaperID, AuthorID) is
// unique; Position is the author's 0-based ordinal on the paper's byline.
type PaperAuthor struct {
	PaperID  string `json:"paper_id"`
	AuthorID string `json:"author_id"`
	Position int    `json:"position"`
}

// PaperRelation is a directed citation edge between two papers.
//
// Invariants: Source != Target; (Source, Target, Type) is unique; HopCount
// is the minimum observed graph distance from the crawl's seed paper, >= 1.
type PaperRelation struct {
	ID         int64        `json:"id"`
	Source     string       `json:"source"`
	Target     string       `json:"target"`
	Type       RelationType `json:"type"`
	HopCount   int          `json:"hop_count"`
	Confidence *float64     `json:"confidence,omitempty"`
	Relevance  *float64     `json:"relevance,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ExternalIDType enumerates the catalogs a Paper may be cross-referenced in.
type ExternalIDType string

const (
	ExternalIDDOI    ExternalIDType = "DOI"
	ExternalIDArXiv  ExternalIDType = "ArXiv"
	ExternalIDPubMed ExternalIDType = "PubMed"
	ExternalIDACL    ExternalIDType = "ACL"
	ExternalIDMAG    ExternalIDType = "MAG"
)

// ExternalID cross-references a Paper in another catalog. (PaperID, IDType)
// is unique.
type ExternalID struct {
	PaperID    string         `json:"paper_id"`
	IDType     ExternalIDType `json:"id_type"`
	ExternalID string         `json:"external_id"`
}

// Keyword is an extracted or assigned keyword for a Paper.
type Keyword struct {
	PaperID   string  `json:"paper_id"`
	Keyword   string  `json:"keyword"`
	Relevance float64 `json:"relevance"`
	Method    string  `json:"method"` // e.g. "llm", "tfidf"
}

// Venue is a conference or workshop a Paper may have been published at.
type Venue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // e.g. "conference", "workshop"
}

// Journal is a journal a Paper may have been published in.
type Journal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QueueItem is a single row of the durable processing queue (C5).
//
// Invariant: at most one row per (PaperID, TaskType) may be Pending, and at
// most one may be Running, at any instant.
type QueueItem struct {
	ID            int64          `json:"id"`
	PaperID       string         `json:"paper_id"`
	TaskType      Stage          `json:"task_type"`
	Status        QueueStatus    `json:"status"`
	Priority      int            `json:"priority"` // 0-100, higher claims first
	RetryCount    int            `json:"retry_count"`
	MaxRetries    int            `json:"max_retries"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	WorkerID      string         `json:"worker_id,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GraphStats is the recomputed summary row the dispatcher maintains for the
// vault's README index.
type GraphStats struct {
	PaperCount      int       `json:"paper_count"`
	AuthorCount     int       `json:"author_count"`
	RelationCount   int       `json:"relation_count"`
	CrawledCount    int       `json:"crawled_count"`
	SummarizedCount int       `json:"summarized_count"`
	MaxHopReached   int       `json:"max_hop_reached"`
	ComputedAt      time.Time `json:"computed_at"`
}

// ValidateYear reports whether a (possibly absent) publication year
// satisfies the year ∈ [1900, 2100] ∪ {null} invariant.
func ValidateYear(year *int) bool {
	if year == nil {
		return true
	}
	return *year >= 1900 && *year <= 2100
}

// IsTerminal reports whether a QueueStatus will not transition further
// without external intervention (Reclaim resets Running, not these).
func (s QueueStatus) IsTerminal() bool {
	return s == QueueCompleted || s == QueueFailed
}
