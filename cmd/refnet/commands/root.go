package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"refnet/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "refnet",
		Short: "Citation-graph knowledge base crawler",
		Long: `refnet crawls a seed paper's citation graph, fetches and summarizes
its PDFs, and renders a browsable Markdown vault.

Examples:
  refnet migrate up
  refnet ingress --seed W123456 --max-hops 3
  refnet work crawl
  refnet dispatch
  refnet serve`,
	}

	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.refnet.yaml)")

	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewIngressCmd())
	rootCmd.AddCommand(NewWorkCmd())
	rootCmd.AddCommand(NewDispatchCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
