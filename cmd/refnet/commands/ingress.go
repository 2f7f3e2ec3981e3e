package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"refnet/internal/config"
	"refnet/internal/ingress"
	"refnet/internal/logger"
	"refnet/internal/queue"
)

// NewIngressCmd creates the ingress command: either a one-shot seed, or
// (with --serve) the long-running HTTP collaborator.
func NewIngressCmd() *cobra.Command {
	var (
		seed    string
		maxHops int
		serve   bool
	)

	cmd := &cobra.Command{
		Use:   "ingress",
		Short: "Seed a crawl, or serve the ingress HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serve {
				return runIngressServe(cmd.Context())
			}
			if seed == "" {
				return fmt.Errorf("--seed is required unless --serve is set")
			}
			return runIngressSeed(cmd.Context(), seed, maxHops)
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "catalog id of the paper to seed")
	cmd.Flags().IntVar(&maxHops, "max-hops", 2, "maximum crawl recursion depth")
	cmd.Flags().BoolVar(&serve, "serve", false, "run the ingress HTTP server instead of a one-shot seed")

	return cmd
}

func runIngressSeed(ctx context.Context, seed string, maxHops int) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()
	q := queue.New(db.Queue(), queueConfig(cfg))
	ing := ingress.New(db, q)

	result, err := ing.Start(ctx, seed, maxHops)
	if err != nil {
		return fmt.Errorf("failed to start crawl: %w", err)
	}

	fmt.Printf("seeded paper=%s task_id=%d\n", result.PaperID, result.TaskID)
	return nil
}

func runIngressServe(ctx context.Context) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()
	q := queue.New(db.Queue(), queueConfig(cfg))
	ing := ingress.New(db, q)

	readTimeout, err := time.ParseDuration(cfg.Ingress.ReadTimeout)
	if err != nil {
		readTimeout = 15 * time.Second
	}
	writeTimeout, err := time.ParseDuration(cfg.Ingress.WriteTimeout)
	if err != nil {
		writeTimeout = 15 * time.Second
	}

	srv := ingress.NewServer(ing, ingress.ServerConfig{
		Host:         cfg.Ingress.Host,
		Port:         cfg.Ingress.Port,
		BearerToken:  cfg.Ingress.BearerToken,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("ingress server listening", "host", cfg.Ingress.Host, "port", cfg.Ingress.Port)
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("ingress server error: %w", err)
	case sig := <-shutdown:
		logger.Info("ingress server shutdown initiated", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
