package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/lingodrill/internal/items"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the vocabulary and grammar items sessions draw from",
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <lexical|grammar> <content>",
	Short: "Add or replace an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := items.Kind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("unknown item kind %q (want lexical or grammar)", args[0])
		}
		content := strings.TrimSpace(args[1])
		if content == "" {
			return fmt.Errorf("item content is empty")
		}
		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			id = uuid.NewString()
		}
		difficulty, _ := cmd.Flags().GetInt("difficulty")
		frequency, _ := cmd.Flags().GetInt("frequency")
		if err := checkRange("difficulty", difficulty, 0, 10); err != nil {
			return err
		}
		if err := checkRange("frequency", frequency, 0, 10); err != nil {
			return err
		}

		e, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		it := items.Item{
			ID:              id,
			Kind:            kind,
			Content:         content,
			DifficultyLevel: difficulty,
			FrequencyRank:   frequency,
			CreatedAt:       time.Now().UTC(),
		}
		if err := e.store.PutItem(cmd.Context(), it); err != nil {
			return err
		}
		fmt.Printf("Added %s item %s\n", kind, id)
		return nil
	},
}

var itemsReviewCmd = &cobra.Command{
	Use:   "review <id> <mastery 0-100>",
	Short: "Record a review of an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mastery int
		if _, err := fmt.Sscanf(args[1], "%d", &mastery); err != nil {
			return fmt.Errorf("invalid mastery %q: %w", args[1], err)
		}
		if err := checkRange("mastery", mastery, 0, 100); err != nil {
			return err
		}
		at := time.Now().UTC()
		if s, _ := cmd.Flags().GetString("at"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid --at %q: %w", s, err)
			}
			at = t.UTC()
		}

		e, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.store.RecordReview(cmd.Context(), args[0], mastery, at); err != nil {
			return err
		}
		fmt.Printf("Recorded mastery %d for %s\n", mastery, args[0])
		return nil
	},
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items in the order sessions pick them",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kindFlag, _ := cmd.Flags().GetString("kind")
		kinds := []items.Kind{items.KindLexical, items.KindGrammar}
		if kindFlag != "" {
			k := items.Kind(kindFlag)
			if !k.Valid() {
				return fmt.Errorf("unknown item kind %q", kindFlag)
			}
			kinds = []items.Kind{k}
		}

		e, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		for i, kind := range kinds {
			cands, err := e.store.ListCandidates(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%s (%d)\n", strings.ToUpper(string(kind)), len(cands))
			fmt.Println(strings.Repeat("─", 90))
			fmt.Printf("%-36s  %-7s  %-4s  %-16s  %s\n", "ID", "Mastery", "Diff", "Last review", "Content")
			for _, c := range cands {
				last := "never"
				if c.Analytics.LastReviewedAt != nil {
					last = c.Analytics.LastReviewedAt.Local().Format("2006-01-02 15:04")
				}
				diff := "-"
				if c.Item.DifficultyLevel > 0 {
					diff = fmt.Sprint(c.Item.DifficultyLevel)
				}
				fmt.Printf("%-36s  %-7d  %-4s  %-16s  %s\n",
					c.Item.ID, c.Analytics.MasteryScore, diff, last, truncate(c.Item.Content, 40))
			}
		}
		return nil
	},
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, lo, hi, v)
	}
	return nil
}

func init() {
	itemsAddCmd.Flags().String("id", "", "Item id (default a new UUID)")
	itemsAddCmd.Flags().Int("difficulty", 0, "Difficulty 1-10 (0 for unset)")
	itemsAddCmd.Flags().Int("frequency", 0, "Frequency rank 1-10 (0 for unset)")
	itemsReviewCmd.Flags().String("at", "", "Review time, RFC 3339 (default now)")
	itemsListCmd.Flags().IntP("limit", "n", 0, "Items per pool (0 for all)")
	itemsListCmd.Flags().StringP("kind", "k", "", "Only this pool (lexical or grammar)")

	itemsCmd.AddCommand(itemsAddCmd)
	itemsCmd.AddCommand(itemsReviewCmd)
	itemsCmd.AddCommand(itemsListCmd)
}
