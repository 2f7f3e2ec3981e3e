package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"refnet/internal/core"
)

// postgresPaperRepo implements PaperRepository for PostgreSQL.
type postgresPaperRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresPaperRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresPaperRepo) UpsertPaper(ctx context.Context, p *core.Paper) error {
	query := `
		INSERT INTO papers (
			id, title, abstract, year, citation_count, reference_count,
			influence_score, open_access, language, pdf_url, pdf_hash, pdf_size,
			summary, summary_model, summary_created_at, venue_id, journal_id,
			last_crawled_at, crawl_status, pdf_status, summary_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			title              = COALESCE(NULLIF(EXCLUDED.title, ''), papers.title),
			abstract           = COALESCE(NULLIF(EXCLUDED.abstract, ''), papers.abstract),
			year               = COALESCE(EXCLUDED.year, papers.year),
			citation_count     = GREATEST(EXCLUDED.citation_count, papers.citation_count),
			reference_count    = GREATEST(EXCLUDED.reference_count, papers.reference_count),
			influence_score    = COALESCE(EXCLUDED.influence_score, papers.influence_score),
			open_access        = EXCLUDED.open_access OR papers.open_access,
			language           = COALESCE(NULLIF(EXCLUDED.language, ''), papers.language),
			pdf_url            = COALESCE(NULLIF(EXCLUDED.pdf_url, ''), papers.pdf_url),
			pdf_hash           = COALESCE(NULLIF(EXCLUDED.pdf_hash, ''), papers.pdf_hash),
			pdf_size           = CASE WHEN EXCLUDED.pdf_size > 0 THEN EXCLUDED.pdf_size ELSE papers.pdf_size END,
			summary            = COALESCE(NULLIF(EXCLUDED.summary, ''), papers.summary),
			summary_model      = COALESCE(NULLIF(EXCLUDED.summary_model, ''), papers.summary_model),
			summary_created_at = COALESCE(EXCLUDED.summary_created_at, papers.summary_created_at),
			venue_id           = COALESCE(NULLIF(EXCLUDED.venue_id, ''), papers.venue_id),
			journal_id         = COALESCE(NULLIF(EXCLUDED.journal_id, ''), papers.journal_id),
			last_crawled_at    = COALESCE(EXCLUDED.last_crawled_at, papers.last_crawled_at),
			updated_at         = now()
	`
	_, err := r.query().ExecContext(ctx, query,
		p.ID, p.Title, p.Abstract, p.Year, p.CitationCount, p.ReferenceCount,
		p.InfluenceScore, p.OpenAccess, p.Language, p.PDFURL, p.PDFHash, p.PDFSize,
		p.Summary, p.SummaryModel, p.SummaryCreatedAt, nullString(p.VenueID), nullString(p.JournalID),
		p.LastCrawledAt, string(p.CrawlStatus), string(p.PDFStatus), string(p.SummaryStatus),
	)
	return err
}

func (r *postgresPaperRepo) Get(ctx context.Context, id string) (*core.Paper, error) {
	query := `
		SELECT id, title, abstract, year, citation_count, reference_count,
			influence_score, open_access, language, pdf_url, pdf_hash, pdf_size,
			summary, summary_model, summary_created_at, COALESCE(venue_id, ''), COALESCE(journal_id, ''),
			last_crawled_at, crawl_status, pdf_status, summary_status, created_at, updated_at
		FROM papers WHERE id = $1
	`
	return r.scanPaper(r.query().QueryRowContext(ctx, query, id))
}

func (r *postgresPaperRepo) SetStatus(ctx context.Context, id string, stage core.Stage, status string, errMsg string) error {
	var column string
	switch stage {
	case core.StageCrawl:
		column = "crawl_status"
	case core.StageSummarize:
		column = "summary_status"
	case core.StageGenerate:
		column = "pdf_status"
	default:
		return fmt.Errorf("persistence: unknown stage %q", stage)
	}
	query := fmt.Sprintf(`UPDATE papers SET %s = $2, updated_at = now() WHERE id = $1`, column)
	_, err := r.query().ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	_ = errMsg // not stored: the papers table has no error column
	return nil
}

func (r *postgresPaperRepo) ListByStatus(ctx context.Context, stage core.Stage, status string, limit int) ([]core.Paper, error) {
	var column string
	switch stage {
	case core.StageCrawl:
		column = "crawl_status"
	case core.StageSummarize:
		column = "summary_status"
	case core.StageGenerate:
		column = "pdf_status"
	default:
		return nil, fmt.Errorf("persistence: unknown stage %q", stage)
	}
	query := fmt.Sprintf(`
		SELECT id, title, abstract, year, citation_count, reference_count,
			influence_score, open_access, language, pdf_url, pdf_hash, pdf_size,
			summary, summary_model, summary_created_at, COALESCE(venue_id, ''), COALESCE(journal_id, ''),
			last_crawled_at, crawl_status, pdf_status, summary_status, created_at, updated_at
		FROM papers WHERE %s = $1
		ORDER BY citation_count DESC
		LIMIT $2
	`, column)
	rows, err := r.query().QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanPaperRows(rows)
}

func (r *postgresPaperRepo) List(ctx context.Context, opts ListOptions) ([]core.Paper, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100
	}
	query := `
		SELECT id, title, abstract, year, citation_count, reference_count,
			influence_score, open_access, language, pdf_url, pdf_hash, pdf_size,
			summary, summary_model, summary_created_at, COALESCE(venue_id, ''), COALESCE(journal_id, ''),
			last_crawled_at, crawl_status, pdf_status, summary_status, created_at, updated_at
		FROM papers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.query().QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanPaperRows(rows)
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *postgresPaperRepo) scanPaper(row scannable) (*core.Paper, error) {
	var p core.Paper
	var crawlStatus, pdfStatus, summaryStatus string
	err := row.Scan(
		&p.ID, &p.Title, &p.Abstract, &p.Year, &p.CitationCount, &p.ReferenceCount,
		&p.InfluenceScore, &p.OpenAccess, &p.Language, &p.PDFURL, &p.PDFHash, &p.PDFSize,
		&p.Summary, &p.SummaryModel, &p.SummaryCreatedAt, &p.VenueID, &p.JournalID,
		&p.LastCrawledAt, &crawlStatus, &pdfStatus, &summaryStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.CrawlStatus = core.CrawlStatus(crawlStatus)
	p.PDFStatus = core.PDFStatus(pdfStatus)
	p.SummaryStatus = core.SummaryStatus(summaryStatus)
	return &p, nil
}

func (r *postgresPaperRepo) scanPaperRows(rows *sql.Rows) ([]core.Paper, error) {
	var papers []core.Paper
	for rows.Next() {
		p, err := r.scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, rows.Err()
}

// postgresAuthorRepo implements AuthorRepository for PostgreSQL.
type postgresAuthorRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresAuthorRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresAuthorRepo) UpsertAuthor(ctx context.Context, a *core.Author) error {
	query := `
		INSERT INTO authors (id, name, paper_count, citation_count, h_index, orcid)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name           = COALESCE(NULLIF(EXCLUDED.name, ''), authors.name),
			paper_count    = GREATEST(EXCLUDED.paper_count, authors.paper_count),
			citation_count = GREATEST(EXCLUDED.citation_count, authors.citation_count),
			h_index        = GREATEST(EXCLUDED.h_index, authors.h_index),
			orcid          = COALESCE(NULLIF(EXCLUDED.orcid, ''), authors.orcid)
	`
	_, err := r.query().ExecContext(ctx, query, a.ID, a.Name, a.PaperCount, a.CitationCount, a.HIndex, a.ORCID)
	return err
}

func (r *postgresAuthorRepo) Get(ctx context.Context, id string) (*core.Author, error) {
	query := `SELECT id, name, paper_count, citation_count, h_index, COALESCE(orcid, '') FROM authors WHERE id = $1`
	var a core.Author
	err := r.query().QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.PaperCount, &a.CitationCount, &a.HIndex, &a.ORCID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("author not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *postgresAuthorRepo) LinkAuthor(ctx context.Context, paperID, authorID string, position int) error {
	query := `
		INSERT INTO paper_authors (paper_id, author_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id, author_id) DO UPDATE SET position = EXCLUDED.position
	`
	_, err := r.query().ExecContext(ctx, query, paperID, authorID, position)
	return err
}

func (r *postgresAuthorRepo) GetByPaper(ctx context.Context, paperID string) ([]core.Author, error) {
	query := `
		SELECT a.id, a.name, a.paper_count, a.citation_count, a.h_index, COALESCE(a.orcid, '')
		FROM authors a
		JOIN paper_authors pa ON pa.author_id = a.id
		WHERE pa.paper_id = $1
		ORDER BY pa.position ASC
	`
	rows, err := r.query().QueryContext(ctx, query, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []core.Author
	for rows.Next() {
		var a core.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.PaperCount, &a.CitationCount, &a.HIndex, &a.ORCID); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// postgresRelationRepo implements RelationRepository for PostgreSQL.
type postgresRelationRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresRelationRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresRelationRepo) InsertEdge(ctx context.Context, source, target string, relType core.RelationType, hop int) error {
	if source == target {
		return nil
	}
	query := `
		INSERT INTO paper_relations (source, target, type, hop_count, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (source, target, type) DO UPDATE SET
			hop_count = LEAST(paper_relations.hop_count, EXCLUDED.hop_count)
	`
	_, err := r.query().ExecContext(ctx, query, source, target, string(relType), hop)
	return err
}

func (r *postgresRelationRepo) GetNeighbors(ctx context.Context, paperID string, limit int) ([]core.PaperRelation, error) {
	query := `
		SELECT id, source, target, type, hop_count, confidence, relevance, created_at
		FROM paper_relations
		WHERE source = $1 OR target = $1
		ORDER BY hop_count ASC, id ASC
		LIMIT $2
	`
	rows, err := r.query().QueryContext(ctx, query, paperID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []core.PaperRelation
	for rows.Next() {
		var rel core.PaperRelation
		var relType string
		if err := rows.Scan(&rel.ID, &rel.Source, &rel.Target, &relType, &rel.HopCount, &rel.Confidence, &rel.Relevance, &rel.CreatedAt); err != nil {
			return nil, err
		}
		rel.Type = core.RelationType(relType)
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// postgresExternalIDRepo implements ExternalIDRepository for PostgreSQL.
type postgresExternalIDRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresExternalIDRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresExternalIDRepo) UpsertExternalID(ctx context.Context, id core.ExternalID) error {
	query := `
		INSERT INTO external_ids (paper_id, id_type, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id, id_type) DO UPDATE SET external_id = EXCLUDED.external_id
	`
	_, err := r.query().ExecContext(ctx, query, id.PaperID, string(id.IDType), id.ExternalID)
	return err
}

func (r *postgresExternalIDRepo) GetByPaper(ctx context.Context, paperID string) ([]core.ExternalID, error) {
	query := `SELECT paper_id, id_type, external_id FROM external_ids WHERE paper_id = $1`
	rows, err := r.query().QueryContext(ctx, query, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []core.ExternalID
	for rows.Next() {
		var id core.ExternalID
		var idType string
		if err := rows.Scan(&id.PaperID, &idType, &id.ExternalID); err != nil {
			return nil, err
		}
		id.IDType = core.ExternalIDType(idType)
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// postgresKeywordRepo implements KeywordRepository for PostgreSQL.
type postgresKeywordRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresKeywordRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresKeywordRepo) ReplaceKeywords(ctx context.Context, paperID string, keywords []core.Keyword) error {
	if _, err := r.query().ExecContext(ctx, `DELETE FROM keywords WHERE paper_id = $1`, paperID); err != nil {
		return err
	}
	for _, kw := range keywords {
		_, err := r.query().ExecContext(ctx,
			`INSERT INTO keywords (paper_id, keyword, relevance, method) VALUES ($1, $2, $3, $4)`,
			paperID, kw.Keyword, kw.Relevance, kw.Method,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresKeywordRepo) GetByPaper(ctx context.Context, paperID string) ([]core.Keyword, error) {
	query := `SELECT paper_id, keyword, relevance, method FROM keywords WHERE paper_id = $1 ORDER BY relevance DESC`
	rows, err := r.query().QueryContext(ctx, query, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []core.Keyword
	for rows.Next() {
		var kw core.Keyword
		if err := rows.Scan(&kw.PaperID, &kw.Keyword, &kw.Relevance, &kw.Method); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// postgresVenueRepo implements VenueRepository for PostgreSQL.
type postgresVenueRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresVenueRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresVenueRepo) UpsertVenue(ctx context.Context, v *core.Venue) error {
	query := `
		INSERT INTO venues (id, name, type) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), venues.name),
			type = COALESCE(NULLIF(EXCLUDED.type, ''), venues.type)
	`
	_, err := r.query().ExecContext(ctx, query, v.ID, v.Name, v.Type)
	return err
}

func (r *postgresVenueRepo) Get(ctx context.Context, id string) (*core.Venue, error) {
	var v core.Venue
	err := r.query().QueryRowContext(ctx, `SELECT id, name, type FROM venues WHERE id = $1`, id).Scan(&v.ID, &v.Name, &v.Type)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("venue not found")
		}
		return nil, err
	}
	return &v, nil
}

// postgresJournalRepo implements JournalRepository for PostgreSQL.
type postgresJournalRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresJournalRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresJournalRepo) UpsertJournal(ctx context.Context, j *core.Journal) error {
	query := `
		INSERT INTO journals (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), journals.name)
	`
	_, err := r.query().ExecContext(ctx, query, j.ID, j.Name)
	return err
}

func (r *postgresJournalRepo) Get(ctx context.Context, id string) (*core.Journal, error) {
	var j core.Journal
	err := r.query().QueryRowContext(ctx, `SELECT id, name FROM journals WHERE id = $1`, id).Scan(&j.ID, &j.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("journal not found")
		}
		return nil, err
	}
	return &j, nil
}

// postgresQueueRepo implements QueueRepository for PostgreSQL.
type postgresQueueRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresQueueRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresQueueRepo) Enqueue(ctx context.Context, item core.QueueItem) (int64, error) {
	params, err := json.Marshal(item.Parameters)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal queue parameters: %w", err)
	}

	var id int64
	query := `
		INSERT INTO processing_queue (paper_id, task_type, status, priority, retry_count, max_retries, parameters, created_at)
		VALUES ($1, $2, 'pending', $3, 0, $4, $5, now())
		ON CONFLICT (paper_id, task_type) WHERE status IN ('pending', 'running')
		DO UPDATE SET priority = GREATEST(processing_queue.priority, EXCLUDED.priority)
		RETURNING id
	`
	err = r.query().QueryRowContext(ctx, query, item.PaperID, string(item.TaskType), item.Priority, item.MaxRetries, params).Scan(&id)
	return id, err
}

func (r *postgresQueueRepo) Claim(ctx context.Context, stage core.Stage, workerID string) (*core.QueueItem, error) {
	query := `
		UPDATE processing_queue SET status = 'running', started_at = now(), worker_id = $2
		WHERE id = (
			SELECT id FROM processing_queue
			WHERE task_type = $1 AND status = 'pending'
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, paper_id, task_type, status, priority, retry_count, max_retries,
			COALESCE(error_message, ''), parameters, created_at, started_at, completed_at
	`
	row := r.query().QueryRowContext(ctx, query, string(stage), workerID)
	return r.scanQueueItem(row)
}

func (r *postgresQueueRepo) Complete(ctx context.Context, id int64, status core.QueueStatus, errMsg string, execTime time.Duration) error {
	query := `
		UPDATE processing_queue SET
			status = $2, error_message = NULLIF($3, ''), completed_at = now()
		WHERE id = $1
	`
	_, err := r.query().ExecContext(ctx, query, id, string(status), errMsg)
	_ = execTime // not stored: processing_queue has no execution_time column
	return err
}

func (r *postgresQueueRepo) Reclaim(ctx context.Context, leaseBound time.Duration) (int, int, error) {
	bound := time.Now().Add(-leaseBound)

	terminalQuery := `
		UPDATE processing_queue SET status = 'failed', completed_at = now()
		WHERE status = 'running' AND started_at < $1 AND retry_count >= max_retries
	`
	res, err := r.query().ExecContext(ctx, terminalQuery, bound)
	if err != nil {
		return 0, 0, err
	}
	terminalRows, _ := res.RowsAffected()

	reclaimQuery := `
		UPDATE processing_queue SET status = 'pending', started_at = NULL, worker_id = NULL, retry_count = retry_count + 1
		WHERE status = 'running' AND started_at < $1 AND retry_count < max_retries
	`
	res, err = r.query().ExecContext(ctx, reclaimQuery, bound)
	if err != nil {
		return 0, int(terminalRows), err
	}
	reclaimedRows, _ := res.RowsAffected()

	return int(reclaimedRows), int(terminalRows), nil
}

func (r *postgresQueueRepo) PurgeTerminal(ctx context.Context, retention time.Duration) (int, error) {
	query := `DELETE FROM processing_queue WHERE status IN ('completed', 'failed') AND completed_at < $1`
	res, err := r.query().ExecContext(ctx, query, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *postgresQueueRepo) ListPendingPaperIDs(ctx context.Context, stage core.Stage, status string, limit int) ([]string, error) {
	var column string
	switch stage {
	case core.StageCrawl:
		column = "crawl_status"
	case core.StageSummarize:
		column = "summary_status"
	case core.StageGenerate:
		column = "pdf_status"
	default:
		return nil, fmt.Errorf("persistence: unknown stage %q", stage)
	}
	query := fmt.Sprintf(`
		SELECT p.id FROM papers p
		LEFT JOIN processing_queue q ON q.paper_id = p.id AND q.task_type = $1 AND q.status IN ('pending', 'running')
		WHERE p.%s = $2 AND q.id IS NULL
		LIMIT $3
	`, column)
	rows, err := r.query().QueryContext(ctx, query, string(stage), status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListGenerateReadyPaperIDs implements QueueRepository.ListGenerateReadyPaperIDs.
// It mirrors the gating condition crawl.go and summarize.go actually use
// before enqueuing a generate job (summarize finished either way, or was
// skipped because there was no PDF to fetch), restricted to papers that
// were genuinely crawled: a placeholder row (title never populated, left
// behind as a neighbor's edge endpoint that ShouldRecurse excluded from
// crawling) has pdf_status='pending' forever and must never be mistaken
// for "summarize just finished, generate is due".
func (r *postgresQueueRepo) ListGenerateReadyPaperIDs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT p.id FROM papers p
		LEFT JOIN processing_queue q ON q.paper_id = p.id AND q.task_type = $1 AND q.status IN ('pending', 'running')
		WHERE p.title != ''
		  AND (p.summary_status IN ('completed', 'failed') OR p.pdf_status = 'unavailable')
		  AND q.id IS NULL
		LIMIT $2
	`
	rows, err := r.query().QueryContext(ctx, query, string(core.StageGenerate), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresQueueRepo) scanQueueItem(row scannable) (*core.QueueItem, error) {
	var item core.QueueItem
	var taskType, status string
	var params []byte
	err := row.Scan(
		&item.ID, &item.PaperID, &taskType, &status, &item.Priority, &item.RetryCount, &item.MaxRetries,
		&item.ErrorMessage, &params, &item.CreatedAt, &item.StartedAt, &item.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	item.TaskType = core.Stage(taskType)
	item.Status = core.QueueStatus(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &item.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue parameters: %w", err)
		}
	}
	return &item, nil
}

// postgresStatsRepo implements GraphStatsRepository for PostgreSQL.
type postgresStatsRepo struct {
	db *sql.DB
}

func (r *postgresStatsRepo) Recompute(ctx context.Context) (core.GraphStats, error) {
	var stats core.GraphStats
	query := `
		SELECT
			(SELECT count(*) FROM papers),
			(SELECT count(*) FROM authors),
			(SELECT count(*) FROM paper_relations),
			(SELECT count(*) FROM papers WHERE crawl_status = 'completed'),
			(SELECT count(*) FROM papers WHERE summary_status = 'completed'),
			(SELECT COALESCE(max(hop_count), 0) FROM paper_relations)
	`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.PaperCount, &stats.AuthorCount, &stats.RelationCount,
		&stats.CrawledCount, &stats.SummarizedCount, &stats.MaxHopReached,
	)
	if err != nil {
		return stats, err
	}
	stats.ComputedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO graph_stats (id, paper_count, author_count, relation_count, crawled_count, summarized_count, max_hop_reached, computed_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			paper_count = EXCLUDED.paper_count, author_count = EXCLUDED.author_count,
			relation_count = EXCLUDED.relation_count, crawled_count = EXCLUDED.crawled_count,
			summarized_count = EXCLUDED.summarized_count, max_hop_reached = EXCLUDED.max_hop_reached,
			computed_at = EXCLUDED.computed_at
	`, stats.PaperCount, stats.AuthorCount, stats.RelationCount, stats.CrawledCount, stats.SummarizedCount, stats.MaxHopReached, stats.ComputedAt)
	return stats, err
}

func (r *postgresStatsRepo) Latest(ctx context.Context) (core.GraphStats, error) {
	var stats core.GraphStats
	query := `SELECT paper_count, author_count, relation_count, crawled_count, summarized_count, max_hop_reached, computed_at FROM graph_stats WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.PaperCount, &stats.AuthorCount, &stats.RelationCount,
		&stats.CrawledCount, &stats.SummarizedCount, &stats.MaxHopReached, &stats.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return core.GraphStats{}, nil
	}
	return stats, err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
