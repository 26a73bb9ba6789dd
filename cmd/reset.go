package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var flagYes bool

var resetCmd = &cobra.Command{
	Use:   "reset <repository>",
	Short: "Delete a repository's chunks and state so the next ingest starts fresh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		if !flagYes {
			fmt.Printf("Are you sure you want to reset %q? This will delete all of its chunks. (yes/no): ", name)
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "yes" {
				fmt.Println("Reset cancelled.")
				return nil
			}
		}

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
		svc := newService(cfg, st, emb, log)

		n, err := svc.Reset(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("Reset complete: %d chunks deleted.\n", n)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&flagYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
