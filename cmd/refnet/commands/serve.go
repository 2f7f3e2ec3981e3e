package commands

import "github.com/spf13/cobra"

// NewServeCmd is an alias for "ingress --serve": starts the bearer-token
// protected HTTP collaborator that accepts new seeds and reports status.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ingress HTTP server (alias for \"ingress --serve\")",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngressServe(cmd.Context())
		},
	}
}
