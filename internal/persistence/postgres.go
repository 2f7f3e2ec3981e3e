// Package persistence provides database implementations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements the Database interface for PostgreSQL.
type PostgresDB struct {
	db        *sql.DB
	papers    PaperRepository
	authors   AuthorRepository
	relations RelationRepository
	extIDs    ExternalIDRepository
	keywords  KeywordRepository
	venues    VenueRepository
	journals  JournalRepository
	queue     QueueRepository
	stats     GraphStatsRepository
}

// NewPostgresDB creates a new PostgreSQL database connection.
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{db: db}
	pgDB.papers = &postgresPaperRepo{db: db}
	pgDB.authors = &postgresAuthorRepo{db: db}
	pgDB.relations = &postgresRelationRepo{db: db}
	pgDB.extIDs = &postgresExternalIDRepo{db: db}
	pgDB.keywords = &postgresKeywordRepo{db: db}
	pgDB.venues = &postgresVenueRepo{db: db}
	pgDB.journals = &postgresJournalRepo{db: db}
	pgDB.queue = &postgresQueueRepo{db: db}
	pgDB.stats = &postgresStatsRepo{db: db}

	return pgDB, nil
}

func (p *PostgresDB) Papers() PaperRepository         { return p.papers }
func (p *PostgresDB) Authors() AuthorRepository       { return p.authors }
func (p *PostgresDB) Relations() RelationRepository   { return p.relations }
func (p *PostgresDB) ExternalIDs() ExternalIDRepository { return p.extIDs }
func (p *PostgresDB) Keywords() KeywordRepository     { return p.keywords }
func (p *PostgresDB) Venues() VenueRepository         { return p.venues }
func (p *PostgresDB) Journals() JournalRepository     { return p.journals }
func (p *PostgresDB) Queue() QueueRepository          { return p.queue }
func (p *PostgresDB) Stats() GraphStatsRepository     { return p.stats }

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:        tx,
		papers:    &postgresPaperRepo{db: p.db, tx: tx},
		authors:   &postgresAuthorRepo{db: p.db, tx: tx},
		relations: &postgresRelationRepo{db: p.db, tx: tx},
		extIDs:    &postgresExternalIDRepo{db: p.db, tx: tx},
		keywords:  &postgresKeywordRepo{db: p.db, tx: tx},
		venues:    &postgresVenueRepo{db: p.db, tx: tx},
		journals:  &postgresJournalRepo{db: p.db, tx: tx},
		queue:     &postgresQueueRepo{db: p.db, tx: tx},
	}, nil
}

// postgresTx implements Transaction.
type postgresTx struct {
	tx        *sql.Tx
	papers    PaperRepository
	authors   AuthorRepository
	relations RelationRepository
	extIDs    ExternalIDRepository
	keywords  KeywordRepository
	venues    VenueRepository
	journals  JournalRepository
	queue     QueueRepository
}

func (t *postgresTx) Commit() error   { return t.tx.Commit() }
func (t *postgresTx) Rollback() error { return t.tx.Rollback() }

func (t *postgresTx) Papers() PaperRepository         { return t.papers }
func (t *postgresTx) Authors() AuthorRepository       { return t.authors }
func (t *postgresTx) Relations() RelationRepository   { return t.relations }
func (t *postgresTx) ExternalIDs() ExternalIDRepository { return t.extIDs }
func (t *postgresTx) Keywords() KeywordRepository     { return t.keywords }
func (t *postgresTx) Venues() VenueRepository         { return t.venues }
func (t *postgresTx) Journals() JournalRepository     { return t.journals }
func (t *postgresTx) Queue() QueueRepository          { return t.queue }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
