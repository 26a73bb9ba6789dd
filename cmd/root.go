package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagDB       string
	flagState    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "axon",
	Short: "Incremental code indexing and retrieval for Git repositories",
	Long: `Axon keeps a vector index of configured Git repositories in sync with
their remotes. It clones or fetches each repository, chunks changed files
along declaration boundaries, embeds the chunks, and serves semantic
search, RAG chat, and MCP tools over the result.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "repositories config file (default config/repos.json)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path for the sqlite backend (default data/axon.db)")
	rootCmd.PersistentFlags().StringVar(&flagState, "state", "", "ingestion state file (default <repos-base>/ingestion_state.json)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// newLogger builds the process logger. Logs go to stderr so command
// output and the MCP stdio transport keep stdout to themselves.
func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
