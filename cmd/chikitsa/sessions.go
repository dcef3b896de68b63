package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/chikitsa/internal/config"
	"github.com/ayusman/chikitsa/internal/store"
)

func newSessionsCommand(configFlag *string) *cobra.Command {
	var exerciseID string
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List completed coaching sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configFlag)
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.Sessions().List(exerciseID, limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID,
					s.ExerciseID,
					s.StartedAt.Local().Format("2006-01-02 15:04"),
					fmt.Sprintf("%.0fs", float64(s.DurationMs)/1000),
					fmt.Sprintf("%.1f", s.Score),
					fmt.Sprintf("%d", s.Corrections),
					fmt.Sprintf("%d", s.Reps),
					fmt.Sprintf("%.0f%%", s.ConsistencyScore),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "EXERCISE", "STARTED", "DURATION", "SCORE", "CORRECTIONS", "REPS", "CONSISTENCY"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&exerciseID, "exercise", "", "Filter by exercise ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list (0 for all)")

	return cmd
}

// openStore loads configuration and opens the daemon database.
func openStore(configPath string) (*store.Store, error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return store.New(cfg.DatabasePath())
}
