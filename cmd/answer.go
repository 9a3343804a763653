package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingodrill/internal/session"
)

var answerCmd = &cobra.Command{
	Use:   "answer <session-id> <question-id> <answer-json>",
	Short: "Answer one question of a session",
	Long: `Records an answer. The answer is JSON shaped by question type:
  lexical_fix, grammar_transformation, translate, reverse_translation,
  choice_one:        "text" or "option id"
  sentence_puzzle:   "whole sentence" or ["word", "word", ...]
  gap_fill:          {"0": "word", "1": "word"} or ["word", "word"]
  choice_multi:      ["opt_a", "opt_c"]
  matching:          {"left id": "right id", ...}
  true_false:        true or false
Only the first answer to a question counts.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		elapsed, _ := cmd.Flags().GetDuration("elapsed")
		raw := json.RawMessage(args[2])
		if !json.Valid(raw) {
			// A bare word is taken as a string answer.
			b, err := json.Marshal(args[2])
			if err != nil {
				return err
			}
			raw = b
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.manager.SubmitAnswer(cmd.Context(), session.Submission{
			SessionID:  args[0],
			QuestionID: args[1],
			Answer:     raw,
			Elapsed:    elapsed,
		})
		var stale *session.StaleWriteError
		if errors.As(err, &stale) {
			fmt.Printf("Already answered at %s: %s\n",
				stale.Existing.AnsweredAt.Local().Format("15:04:05"), verdict(stale.Existing))
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println(verdict(res.Answer))
		if res.Session.Status == session.StatusCompleted {
			fmt.Printf("Session %s completed. See `lingodrill session show %s`.\n", res.Session.ID, res.Session.ID)
		}
		return nil
	},
}

func verdict(a session.Answer) string {
	if a.IsCorrect {
		return fmt.Sprintf("Correct! +%d points (%.0fs)", a.Points, a.TimeTakenSeconds)
	}
	return fmt.Sprintf("Not quite. 0 points (%.0fs)", a.TimeTakenSeconds)
}

func init() {
	answerCmd.Flags().DurationP("elapsed", "t", 0, "Time taken to answer (e.g. 12s)")
}
