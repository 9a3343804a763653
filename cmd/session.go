package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingodrill/internal/question"
	"github.com/abhisek/lingodrill/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "List, inspect and move practice sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		if status != "" && !session.Status(status).Valid() {
			return fmt.Errorf("unknown status %q", status)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		sessions, err := e.manager.List(cmd.Context(), session.Status(status), limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-36s  %-9s  %-9s  %-5s  %-16s  %s\n",
			"ID", "Status", "Questions", "Diff", "Created", "Expires")
		fmt.Println(strings.Repeat("─", 100))
		for _, s := range sessions {
			fmt.Printf("%-36s  %-9s  %-9d  %-5.1f  %-16s  %s\n",
				s.ID,
				s.Status,
				len(s.QuestionIDs),
				s.DifficultyLevel,
				s.CreatedAt.Local().Format("2006-01-02 15:04"),
				s.ExpiresAt.Local().Format("2006-01-02 15:04"),
			)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session summary and its questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		sum, err := e.manager.Summarize(ctx, args[0])
		if err != nil {
			return err
		}
		printSummary(sum)

		if withQuestions, _ := cmd.Flags().GetBool("questions"); withQuestions {
			qs, err := e.manager.Questions(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println()
			for i, q := range qs {
				printQuestion(i+1, q)
			}
		}
		return nil
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Open a pending session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		s, err := e.manager.Start(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Session %s is %s.\n", s.ID, s.Status)
		return nil
	},
}

var sessionSubmitCmd = &cobra.Command{
	Use:   "submit <id>",
	Short: "Finish an active session, leaving unanswered questions unscored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		if _, err := e.manager.Complete(ctx, args[0]); err != nil {
			return err
		}
		sum, err := e.manager.Summarize(ctx, args[0])
		if err != nil {
			return err
		}
		printSummary(sum)
		return nil
	},
}

func printSummary(sum *session.Summary) {
	s := sum.Session
	fmt.Printf("Session:   %s\n", s.ID)
	fmt.Printf("Status:    %s\n", s.Status)
	fmt.Printf("Created:   %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if s.StartedAt != nil {
		fmt.Printf("Started:   %s\n", s.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if s.CompletedAt != nil {
		fmt.Printf("Completed: %s\n", s.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Expires:   %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Difficulty: %.1f\n", s.DifficultyLevel)

	fmt.Println()
	fmt.Printf("%-3s  %-36s  %-22s  %-8s  %-7s  %s\n", "#", "Question", "Type", "Answered", "Correct", "Points")
	fmt.Println(strings.Repeat("─", 96))
	for i, row := range sum.Questions {
		typ := string(row.Type)
		if typ == "" {
			typ = "(purged)"
		}
		answered, correct, points := "-", "-", "-"
		if row.Answered {
			answered = "yes"
			correct = "✗"
			if row.Correct {
				correct = "✓"
			}
			points = fmt.Sprintf("%d/%d", row.Points, row.MaxPoints)
		}
		fmt.Printf("%-3d  %-36s  %-22s  %-8s  %-7s  %s\n", i+1, row.QuestionID, typ, answered, correct, points)
	}
	fmt.Println(strings.Repeat("─", 96))
	fmt.Printf("Answered %d of %d, %d correct (%.0f%%), score %d of %d\n",
		sum.Answered, sum.TotalQuestions, sum.Correct, sum.Accuracy*100, sum.Score, sum.MaxScore)
	if sum.Archived != nil {
		fmt.Printf("Archived result: %d/%d correct, score %d\n",
			sum.Archived.Correct, sum.Archived.TotalQuestions, sum.Archived.Score)
	}
}

// printQuestion shows what the learner needs to answer a question, never
// the expected answer.
func printQuestion(n int, q question.Question) {
	fmt.Printf("%d. [%s] %s  (%ds, up to %d points)\n", n, q.Type(), q.ID, q.TimeLimitSeconds, q.ScoreBand[0])
	if q.Context != "" {
		fmt.Printf("   %s\n", q.Context)
	}
	switch b := q.Body.(type) {
	case question.LexicalFix:
		fmt.Printf("   %s\n   Replace: %q\n", b.Sentence, b.IncorrectWord)
	case question.GrammarTransformation:
		fmt.Printf("   %s\n", b.OriginalSentence)
	case question.SentencePuzzle:
		fmt.Printf("   Words: %s\n", strings.Join(b.Words, " / "))
	case question.Translate:
		fmt.Printf("   %s\n", b.SourceText)
	case question.ReverseTranslation:
		fmt.Printf("   %s\n", b.SourceText)
	case question.GapFill:
		idx := make([]string, len(b.Gaps))
		for i, g := range b.Gaps {
			idx[i] = fmt.Sprint(g.Index)
		}
		fmt.Printf("   %s\n   Gaps: %s\n", b.Sentence, strings.Join(idx, ", "))
	case question.ChoiceOne:
		fmt.Printf("   %s\n", b.Prompt)
		printOptions(b.Options)
	case question.ChoiceMulti:
		fmt.Printf("   %s (choose all that apply)\n", b.Prompt)
		printOptions(b.Options)
	case question.Matching:
		fmt.Println("   Left:")
		printOptions(b.LeftItems)
		right := append([]question.Option(nil), b.RightItems...)
		sort.Slice(right, func(i, j int) bool { return right[i].ID < right[j].ID })
		fmt.Println("   Right:")
		printOptions(right)
	case question.TrueFalse:
		fmt.Printf("   True or false: %s\n", b.Statement)
	}
	fmt.Println()
}

func printOptions(opts []question.Option) {
	for _, o := range opts {
		fmt.Printf("     %-10s %s\n", o.ID, o.Text)
	}
}

func init() {
	sessionListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	sessionListCmd.Flags().StringP("status", "s", "", "Filter by status (pending, active, completed, expired)")
	sessionShowCmd.Flags().BoolP("questions", "q", false, "Also print the questions")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionSubmitCmd)
}
