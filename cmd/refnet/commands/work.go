package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"refnet/internal/catalog"
	"refnet/internal/config"
	"refnet/internal/core"
	"refnet/internal/pdf"
	"refnet/internal/queue"
	"refnet/internal/summarize"
	"refnet/internal/worker"
)

// NewWorkCmd creates the work command, whose subcommands each run one
// stage's claim-handle-complete pool until interrupted.
func NewWorkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Run a stage worker pool",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "crawl",
		Short: "Run the crawl worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawlWorker(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "summarize",
		Short: "Run the summarize worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarizeWorker(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Run the generate worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateWorker(cmd.Context())
		},
	})

	return cmd
}

func runCrawlWorker(ctx context.Context) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()
	q := queue.New(db.Queue(), queueConfig(cfg))

	catalogTimeout, _ := time.ParseDuration(cfg.Catalog.Timeout)
	catalogClient := catalog.New(catalog.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		APIKey:            cfg.Catalog.APIKey,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             5,
		Timeout:           catalogTimeout,
		Retry:             retryPolicy(cfg),
	})

	handler := &worker.CrawlHandler{
		DB:              db,
		Catalog:         catalogClient,
		Queue:           q,
		NeighborLimit:   cfg.Crawl.MaxPapers,
		StalenessWindow: time.Duration(cfg.Crawl.StalenessDays) * 24 * time.Hour,
	}

	runner := worker.New(worker.Config{
		Stage:       core.StageCrawl,
		Concurrency: cfg.Worker.ConcurrencyCrawl,
	}, q, handler, retryPolicy(cfg))

	return runner.Run(ctx)
}

func runSummarizeWorker(ctx context.Context) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()
	q := queue.New(db.Queue(), queueConfig(cfg))

	llm, err := summarize.NewClient(cfg.AI.Provider, summarize.Config{
		APIKey:      providerAPIKey(cfg),
		BaseURL:     cfg.AI.OpenAI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to construct summarizer client: %w", err)
	}

	handler := &worker.SummarizeHandler{
		DB:        db,
		Fetcher:   pdf.NewFetcher(0),
		Extractor: pdf.NewExtractor(),
		LLM:       llm,
		Queue:     q,
	}

	runner := worker.New(worker.Config{
		Stage:       core.StageSummarize,
		Concurrency: cfg.Worker.ConcurrencySummarize,
	}, q, handler, retryPolicy(cfg))

	return runner.Run(ctx)
}

func runGenerateWorker(ctx context.Context) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()
	q := queue.New(db.Queue(), queueConfig(cfg))

	handler := &worker.GenerateHandler{
		DB:            db,
		Queue:         q,
		VaultDir:      cfg.Vault.Path,
		NeighborLimit: cfg.Crawl.MaxPapers,
	}

	runner := worker.New(worker.Config{
		Stage:       core.StageGenerate,
		Concurrency: cfg.Worker.ConcurrencyGenerate,
	}, q, handler, retryPolicy(cfg))

	return runner.Run(ctx)
}

func providerAPIKey(cfg *config.Config) string {
	if cfg.AI.Provider == "anthropic" {
		return cfg.AI.Anthropic.APIKey
	}
	return cfg.AI.OpenAI.APIKey
}
