package commands

import (
	"context"

	"github.com/spf13/cobra"

	"refnet/internal/config"
	"refnet/internal/dispatcher"
	"refnet/internal/queue"
)

// NewDispatchCmd creates the dispatch command, which runs the periodic
// backfill/reclaim/purge/stats control loop until interrupted.
func NewDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run the periodic dispatcher control loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd.Context())
		},
	}
}

func runDispatch(ctx context.Context) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()
	q := queue.New(db.Queue(), queueConfig(cfg))

	d := dispatcher.New(db, q, dispatcher.Config{
		BackfillBatch: cfg.Queue.BatchSize,
	})

	d.Run(ctx)
	return nil
}
