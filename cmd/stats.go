package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice history from completed sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		totals, err := e.store.Execute(ctx, `SELECT COUNT(*) AS sessions,
			SUM(answered) AS answered, SUM(correct) AS correct, SUM(score) AS score
			FROM session_results`)
		if err != nil {
			return fmt.Errorf("query totals: %w", err)
		}
		t := totals.Rows[0]
		if num(t["sessions"]) == 0 {
			fmt.Println("No completed sessions yet.")
			return nil
		}
		answered, correct := num(t["answered"]), num(t["correct"])
		accuracy := 0.0
		if answered > 0 {
			accuracy = float64(correct) / float64(answered) * 100
		}
		fmt.Printf("Completed sessions: %d\n", num(t["sessions"]))
		fmt.Printf("Answers:            %d (%d correct, %.0f%%)\n", answered, correct, accuracy)
		fmt.Printf("Total score:        %d\n", num(t["score"]))

		recent, err := e.store.Execute(ctx, `SELECT session_id, completed_at, total_questions,
			answered, correct, score, difficulty_level
			FROM session_results ORDER BY completed_at DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query results: %w", err)
		}

		fmt.Println()
		fmt.Printf("%-36s  %-20s  %-9s  %-7s  %-5s  %s\n",
			"Session", "Completed", "Answered", "Correct", "Score", "Diff")
		fmt.Println(strings.Repeat("─", 92))
		for _, row := range recent.Rows {
			completed := strings.Replace(fmt.Sprint(row["completed_at"]), "T", " ", 1)
			fmt.Printf("%-36s  %-20s  %-9s  %-7d  %-5d  %.1f\n",
				row["session_id"],
				truncate(completed, 19),
				fmt.Sprintf("%d/%d", num(row["answered"]), num(row["total_questions"])),
				num(row["correct"]),
				num(row["score"]),
				floatOf(row["difficulty_level"]),
			)
		}
		return nil
	},
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func init() {
	statsCmd.Flags().IntP("limit", "n", 10, "Number of recent sessions to show")
}
