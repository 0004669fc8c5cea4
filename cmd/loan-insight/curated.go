package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arvindpandey4/loan-insight-assistant/internal/curated"
)

var curatedCmd = &cobra.Command{
	Use:   "curated",
	Short: "Inspect the curated answer catalog",
}

// --- list subcommand ---

var curatedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := curated.LoadCatalog(cfg.Curated.Catalog)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cat.Sorted())
		}

		fmt.Fprintf(os.Stdout, "%-24s  %-14s  %s\n", "ID", "Category", "First question")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
		for _, e := range cat.Sorted() {
			fmt.Fprintf(os.Stdout, "%-24s  %-14s  %s\n", e.ID, e.Category, e.Questions[0])
		}
		fmt.Fprintf(os.Stdout, "\n%d entries\n", len(cat.Entries))
		return nil
	},
}

// --- match subcommand ---

var curatedMatchCmd = &cobra.Command{
	Use:   "match [question]",
	Short: "Show which catalog entry a question matches, if any",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		emb := newEmbedder(cfg.Embedding, logger)
		m, err := newMatcher(ctx, cfg, emb, logger)
		if err != nil {
			return err
		}

		switch r := m.Match(ctx, strings.Join(args, " ")).(type) {
		case curated.CuratedMatch:
			fmt.Printf("match: %s (score %.3f, threshold %.2f)\n", r.Entry.ID, r.Score, m.Threshold())
			fmt.Printf("closest question: %s\n\n%s\n", r.Question, r.Entry.Answer)
		case curated.NoMatch:
			fmt.Printf("no match: %s (best score %.3f, threshold %.2f)\n", r.Reason, r.BestScore, m.Threshold())
		}
		return nil
	},
}

func init() {
	curatedListCmd.Flags().Bool("json", false, "output entries as JSON")

	curatedCmd.AddCommand(curatedListCmd)
	curatedCmd.AddCommand(curatedMatchCmd)
	rootCmd.AddCommand(curatedCmd)
}
