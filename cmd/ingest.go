package cmd

import (
	"fmt"
	"time"

	"axon/internal/config"
	"axon/internal/ingest"

	"github.com/spf13/cobra"
)

var (
	flagRepo  string
	flagForce bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Clone or update repositories and index their changed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		repos, err := config.LoadRepositories(cfg.ReposConfigPath)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		emb, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		svc := newService(cfg, st, emb, log)

		start := time.Now()

		if flagRepo != "" {
			rc, ok := config.FindRepository(repos, flagRepo)
			if !ok {
				return fmt.Errorf("repository %q not found in %s", flagRepo, cfg.ReposConfigPath)
			}
			stats, err := svc.ProcessRepository(ctx, rc, flagForce)
			if err != nil {
				return err
			}
			fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
			printStats(rc.Name, stats)
			return nil
		}

		results := svc.ProcessAll(ctx, repos, flagForce)
		fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))

		var failed int
		for _, rc := range repos {
			res, ok := results[rc.Name]
			if !ok {
				continue // disabled
			}
			if res.Err != nil {
				failed++
				fmt.Printf("\n%s: failed: %v\n", rc.Name, res.Err)
				continue
			}
			printStats(rc.Name, res.Stats)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d repositories failed", failed, len(results))
		}
		return nil
	},
}

func printStats(name string, stats ingest.Stats) {
	fmt.Printf("\n%s\n", name)
	fmt.Printf("  Files:   %d processed, %d added, %d modified, %d deleted\n",
		stats.FilesProcessed, stats.FilesAdded, stats.FilesModified, stats.FilesDeleted)
	fmt.Printf("  Chunks:  %d added, %d deleted\n", stats.ChunksAdded, stats.ChunksDeleted)
}

func init() {
	ingestCmd.Flags().StringVar(&flagRepo, "repo", "", "ingest only this repository")
	ingestCmd.Flags().BoolVar(&flagForce, "force", false, "reindex even when the head commit is unchanged")
	rootCmd.AddCommand(ingestCmd)
}
