package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Apply the retention policy once",
	Long: "Expires overdue sessions, deletes abandoned ones, and purges questions " +
		"older than 30 days. Completed sessions and their archived results are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := e.manager.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Expired %d sessions, purged %d sessions and %d questions.\n",
			stats.Expired, stats.PurgedSessions, stats.PurgedQuestions)
		return nil
	},
}
