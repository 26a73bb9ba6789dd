package cmd

import (
	"fmt"
	"sort"

	"axon/internal/store"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector store statistics",
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

		st, err := openStore(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		model, err := st.GetMeta(ctx, store.MetaEmbeddingModel)
		if err != nil {
			return err
		}

		fmt.Println("\nVector Store Statistics:")
		fmt.Printf("  Total chunks: %d\n", stats.TotalChunks)
		if model != "" {
			fmt.Printf("  Embedding model: %s\n", model)
		}

		if len(stats.ByRepo) > 0 {
			fmt.Println("  Repositories:")
			for _, name := range sortedKeys(stats.ByRepo) {
				fmt.Printf("    %s: %d\n", name, stats.ByRepo[name])
			}
		}
		if len(stats.ByLanguage) > 0 {
			fmt.Println("  Languages:")
			for _, lang := range sortedKeys(stats.ByLanguage) {
				fmt.Printf("    %s: %d\n", lang, stats.ByLanguage[lang])
			}
		}
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
