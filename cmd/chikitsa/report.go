package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/chikitsa/internal/report"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
)

func newReportCommand(configFlag *string) *cobra.Command {
	var chartPath string

	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Show the report for a completed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configFlag)
			if err != nil {
				return err
			}
			defer st.Close()

			return runReport(cmd, st, args[0], chartPath)
		},
	}

	cmd.Flags().StringVar(&chartPath, "chart", "", "Write an HTML angle chart to this file")

	return cmd
}

func runReport(cmd *cobra.Command, st *store.Store, sessionID, chartPath string) error {
	sess, err := st.Sessions().GetByID(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return err
	}

	exerciseName := sess.ExerciseID
	if e, err := st.Exercises().GetByID(sess.ExerciseID); err == nil {
		exerciseName = e.Name
	}

	rep, err := st.Reports().GetBySessionID(sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// No stored report; produce one from the summary on the spot.
		fb := report.Fallback(exerciseName, summaryFromRecord(sess))
		rep = &store.Report{
			SessionID: sessionID,
			Summary:   fb.Summary,
			Analysis:  fb.Analysis,
			Tip:       fb.Tip,
			Source:    fb.Source,
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s (%s)\n\n", sess.ID, exerciseName)
	fmt.Fprintf(out, "%s\n\n%s\n\nTip: %s\n\n(source: %s)\n", rep.Summary, rep.Analysis, rep.Tip, rep.Source)

	if chartPath == "" {
		return nil
	}

	var frames []session.FrameAnalysis
	if err := json.Unmarshal([]byte(sess.Frames), &frames); err != nil {
		return fmt.Errorf("decode frame series: %w", err)
	}

	f, err := os.Create(chartPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := report.WriteAngleChart(f, exerciseName, frames); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	fmt.Fprintf(out, "Chart written to %s\n", chartPath)
	return nil
}

// summaryFromRecord rebuilds a session summary from its stored record so
// the fallback generator can run against historical sessions.
func summaryFromRecord(s *store.Session) *session.Summary {
	return &session.Summary{
		SessionID:   s.ID,
		ExerciseID:  s.ExerciseID,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		DurationMs:  s.DurationMs,
		Score:       s.Score,
		Corrections: s.Corrections,
		Reps:        s.Reps,
		TotalFrames: s.TotalFrames,
		Patterns: session.ErrorPatterns{
			Torso: s.TorsoErrors,
			Angle: s.AngleErrors,
			Range: s.RangeErrors,
			Total: s.TotalErrors,
		},
		Metrics: session.Metrics{
			AvgAngle:         s.AvgAngle,
			AngleVariance:    s.AngleVariance,
			StabilityScore:   s.StabilityScore,
			ConsistencyScore: s.ConsistencyScore,
			ErrorRate:        s.ErrorRate,
		},
	}
}
