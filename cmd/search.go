package cmd

import (
	"fmt"
	"strings"

	"axon/internal/rag"
	"axon/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagTopK      int
	flagRepos     string
	flagLanguages string
)

const searchSnippetLimit = 500

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed code by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := args[0]

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

		emb, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		retriever := rag.NewRetriever(st, emb, log)

		filter := store.SearchFilter{
			Repos:     splitList(flagRepos),
			Languages: splitList(flagLanguages),
		}
		results, err := retriever.Search(ctx, query, flagTopK, filter)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		fmt.Printf("\nFound %d results:\n\n", len(results))
		for i, res := range results {
			c := res.Chunk
			fmt.Println(strings.Repeat("=", 80))
			fmt.Printf("Result #%d (Score: %.4f)\n", i+1, res.Score)
			fmt.Printf("Repository: %s\n", c.Repo)
			fmt.Printf("File: %s (lines %d-%d)\n", c.Path, c.StartLine, c.EndLine)
			fmt.Printf("Language: %s\n", c.Language)
			fmt.Printf("Type: %s\n", c.Kind)
			if c.Name != "" {
				fmt.Printf("Name: %s\n", c.Name)
			}
			fmt.Printf("\nCode:\n%s\n\n", snippet(c.Content))
		}
		return nil
	},
}

// snippet trims long chunk bodies for terminal output.
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= searchSnippetLimit {
		return content
	}
	return string(runes[:searchSnippetLimit]) + "..."
}

func init() {
	searchCmd.Flags().IntVar(&flagTopK, "top-k", 10, "number of results")
	searchCmd.Flags().StringVar(&flagRepos, "repos", "", "comma-separated repository names to search")
	searchCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated languages to search")
	rootCmd.AddCommand(searchCmd)
}
