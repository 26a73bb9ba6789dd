package cmd

import (
	"fmt"
	"sort"
	"time"

	"axon/internal/state"

	"github.com/spf13/cobra"
)

var flagStateRepo string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show per-repository ingestion state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		states := state.NewStore(cfg.StatePath)

		if flagStateRepo != "" {
			st, ok, err := states.Get(flagStateRepo)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no state found for repository %q", flagStateRepo)
			}
			fmt.Printf("\nState for %s:\n", flagStateRepo)
			printState(st)
			return nil
		}

		all, err := states.Load()
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No repository states found.")
			return nil
		}

		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("\nRepository States:")
		for _, name := range names {
			fmt.Printf("\n%s:\n", name)
			printState(all[name])
		}
		return nil
	},
}

func printState(st state.RepoState) {
	fmt.Printf("  Last commit: %s\n", st.LastCommitHash)
	fmt.Printf("  Last processed: %s\n", st.LastProcessedAt.Format(time.RFC3339))
	fmt.Printf("  Total chunks: %d\n", st.TotalChunks)
	fmt.Printf("  Total files: %d\n", st.TotalFiles)
}

func init() {
	stateCmd.Flags().StringVar(&flagStateRepo, "repo", "", "show only this repository")
	rootCmd.AddCommand(stateCmd)
}
