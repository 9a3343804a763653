package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingodrill/internal/autosession"
	"github.com/abhisek/lingodrill/internal/session"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one practice session now",
	Long: "Runs a single scheduler tick: selects items, asks the provider for " +
		"questions, validates them and stores a pending session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if n, _ := cmd.Flags().GetInt("count"); n > 0 {
			e.cfg.AutoSession.QuestionCount = n
			if err := e.cfg.Validate(); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		if budget := e.cfg.LLM.TickBudget(); budget > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, budget)
			defer cancel()
		}
		sched, err := newScheduler(ctx, e)
		if err != nil {
			return err
		}
		s, err := sched.Tick(ctx)
		switch {
		case errors.Is(err, session.ErrCapacityExceeded):
			fmt.Printf("Already %d pending sessions; answer or let one expire first.\n", e.manager.MaxPending())
			return nil
		case errors.Is(err, autosession.ErrNoItems):
			fmt.Println("No items to practice. Add some with `lingodrill items add`.")
			return nil
		case err != nil:
			return err
		}

		fmt.Printf("Created session %s with %d questions (difficulty %.1f), expires %s\n",
			s.ID, len(s.QuestionIDs), s.DifficultyLevel, s.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	generateCmd.Flags().IntP("count", "n", 0, "Number of questions (default from config)")
}
