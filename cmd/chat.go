package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"axon/internal/llm"
	"axon/internal/rag"
	"axon/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagChatRepos     string
	flagChatLanguages string
	flagContextChunks int
	flagChatModel     string
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask questions about your indexed repositories",
	Long: `Chat answers questions using retrieved code chunks as context.
With a question argument it answers once and lists the sources used.
Without arguments it starts an interactive session.`,
	Args: cobra.MaximumNArgs(1),
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

		emb, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		chat, err := newChat(cfg, flagChatModel)
		if err != nil {
			return err
		}
		retriever := rag.NewRetriever(st, emb, log)

		filter := store.SearchFilter{
			Repos:     splitList(flagChatRepos),
			Languages: splitList(flagChatLanguages),
		}

		if len(args) == 1 {
			return answerOnce(cmd, retriever, chat, args[0], filter)
		}

		var history []llm.Message
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("axon chat (type /help for commands, /exit to quit)")
		fmt.Println()

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Println("Goodbye.")
				return nil
			case "/clear":
				history = nil
				fmt.Println("Conversation cleared.")
				continue
			case "/help":
				fmt.Println("Commands:")
				fmt.Println("  /clear  - clear conversation history")
				fmt.Println("  /exit   - quit chat")
				fmt.Println("  /help   - show this help")
				continue
			}

			fmt.Println("[Searching...]")

			results, err := retriever.Search(ctx, question, flagContextChunks, filter)
			if err != nil {
				fmt.Fprintf(os.Stderr, "retrieval error: %v\n", err)
				continue
			}

			msgs := rag.BuildMessages(results, history, question)
			answer, err := chat.Generate(ctx, msgs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "llm error: %v\n", err)
				continue
			}

			fmt.Println()
			fmt.Println(answer)
			fmt.Println()

			// Keep last 10 turns of history.
			history = append(history, llm.Message{Role: "user", Content: question})
			history = append(history, llm.Message{Role: "assistant", Content: answer})
			if len(history) > 20 {
				history = history[len(history)-20:]
			}
		}

		if err := scanner.Err(); err != nil {
			return err
		}
		return nil
	},
}

func answerOnce(cmd *cobra.Command, retriever *rag.Retriever, chat llm.Chat, question string, filter store.SearchFilter) error {
	ctx := cmd.Context()

	results, err := retriever.Search(ctx, question, flagContextChunks, filter)
	if err != nil {
		return err
	}

	msgs := rag.BuildMessages(results, nil, question)
	answer, err := chat.Generate(ctx, msgs)
	if err != nil {
		return err
	}

	fmt.Printf("\n**Assistant (%s)**:\n", chat.Model())
	fmt.Println(answer)

	if len(results) > 0 {
		fmt.Printf("\n**Sources** (%d code chunks):\n", len(results))
		for i, res := range results {
			c := res.Chunk
			fmt.Printf("%d. %s (lines %d-%d) - Score: %.3f\n", i+1, c.Path, c.StartLine, c.EndLine, res.Score)
		}
	}
	return nil
}

func init() {
	chatCmd.Flags().StringVar(&flagChatRepos, "repos", "", "comma-separated repository names to draw context from")
	chatCmd.Flags().StringVar(&flagChatLanguages, "languages", "", "comma-separated languages to draw context from")
	chatCmd.Flags().IntVar(&flagContextChunks, "context-chunks", 5, "number of code chunks to include as context")
	chatCmd.Flags().StringVar(&flagChatModel, "model", "", "chat model (default from configuration)")
	rootCmd.AddCommand(chatCmd)
}
