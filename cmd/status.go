package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/output"
	"github.com/joescharf/alden/internal/state"
	"github.com/joescharf/alden/internal/timer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the study dashboard",
	Long: `Load sessions, conversations, documents, progress, and mindfulness
sessions from the backend and show a summary of today.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		return statusRun(cmd.Context(), a)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context, a *state.Store) error {
	if err := a.InitializeApp(ctx); err != nil {
		return err
	}
	snap := a.Snapshot()
	if snap.Error != "" {
		ui.Warning("Some data could not be loaded: %s", snap.Error)
	}

	p := snap.Progress
	fmt.Fprintf(ui.Out, "%s %s %s / %s\n",
		output.Cyan("Today"),
		output.GoalBar(p.TodayStudyTime, p.DailyGoal, 20),
		output.Minutes(p.TodayStudyTime),
		output.Minutes(p.DailyGoal))
	fmt.Fprintf(ui.Out, "  Streak:      %d day(s)\n", p.CurrentStreak)
	fmt.Fprintf(ui.Out, "  Sessions:    %d today\n", p.SessionsToday)
	fmt.Fprintf(ui.Out, "  Total study: %s\n", output.Minutes(p.TotalStudyTime))
	fmt.Fprintf(ui.Out, "  Mindful:     %s (%d completed)\n", output.Minutes(p.TotalMindfulTime), p.MindfulSessionsCompleted)
	fmt.Fprintln(ui.Out)

	if ss := snap.ActiveSession; ss != nil {
		fmt.Fprintf(ui.Out, "%s %s (%s) - %s remaining\n",
			output.StatusColor("active"),
			output.Cyan(ss.Subject),
			output.TechniqueColor(string(ss.Technique)),
			timer.Format(sessionRemaining(ss, time.Now())))
	} else {
		ui.Info("No active study session. Start one with 'alden study start <subject>'.")
	}

	fmt.Fprintf(ui.Out, "  Conversations: %d   Documents: %d\n", len(snap.Conversations), len(snap.Documents))
	return nil
}
