// Package cmd provides the CLI commands of the likelihood machine.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "likelihood-machine",
	Short: "Poisson likelihood engine for binned detector measurements",
	Long: `likelihood-machine evaluates, maximizes and Monte-Carlo-tests Poisson
likelihoods of truth-space expectation values folded through a detector
response matrix, as described by a YAML analysis file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "analysis.yaml", "analysis description file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute() error {
	return rootCmd.Execute()
}
