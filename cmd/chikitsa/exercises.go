package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/chikitsa/internal/exercise"
)

func newExercisesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List the built-in exercises",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := exercise.Builtin().List()

			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				rows = append(rows, []string{
					r.ID,
					r.Name,
					formatSeconds(r.Hold),
					formatSeconds(r.Duration),
					r.Description,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "NAME", "HOLD", "DURATION", "DESCRIPTION"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func formatSeconds(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}
