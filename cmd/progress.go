package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/output"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show and manage study progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return progressShowRun(cmd.Context())
	},
}

var progressShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show today's progress and totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return progressShowRun(cmd.Context())
	},
}

var progressGoalCmd = &cobra.Command{
	Use:   "goal <minutes>",
	Short: "Set the daily study goal in minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid minutes %q: %w", args[0], err)
		}
		return progressGoalRun(cmd.Context(), minutes)
	},
}

var progressStreakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Re-evaluate the study streak for today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return progressStreakRun(cmd.Context())
	},
}

func init() {
	progressCmd.AddCommand(progressShowCmd)
	progressCmd.AddCommand(progressGoalCmd)
	progressCmd.AddCommand(progressStreakCmd)
	rootCmd.AddCommand(progressCmd)
}

func progressShowRun(ctx context.Context) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadUserProgress(ctx)
	if err := recordedError(a); err != nil {
		return err
	}

	p := a.Snapshot().Progress
	status := output.Yellow("in progress")
	if p.GoalMet() {
		status = output.Green("goal met")
	}
	fmt.Fprintf(ui.Out, "Today:          %s %s / %s  %s\n", output.GoalBar(p.TodayStudyTime, p.DailyGoal, 20), output.Minutes(p.TodayStudyTime), output.Minutes(p.DailyGoal), status)
	fmt.Fprintf(ui.Out, "Sessions today: %d\n", p.SessionsToday)
	fmt.Fprintf(ui.Out, "Streak:         %d day(s)\n", p.CurrentStreak)
	fmt.Fprintf(ui.Out, "Total study:    %s\n", output.Minutes(p.TotalStudyTime))
	fmt.Fprintf(ui.Out, "Total mindful:  %s\n", output.Minutes(p.TotalMindfulTime))
	fmt.Fprintf(ui.Out, "Mindful done:   %d\n", p.MindfulSessionsCompleted)
	return nil
}

func progressGoalRun(ctx context.Context, minutes int) error {
	if dryRun {
		ui.DryRunMsg("Would set daily goal to %s", output.Minutes(minutes))
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	if err := a.UpdateDailyGoal(ctx, minutes); err != nil {
		return err
	}
	ui.Success("Daily goal set to %s", output.Minutes(a.Snapshot().Progress.DailyGoal))
	return nil
}

func progressStreakRun(ctx context.Context) error {
	if dryRun {
		ui.DryRunMsg("Would update the study streak")
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	res, err := a.UpdateStreak(ctx)
	if err != nil {
		return err
	}
	if res.GoalMet {
		ui.Success("%s (streak: %d)", res.Message, res.CurrentStreak)
	} else {
		ui.Warning("%s (streak: %d)", res.Message, res.CurrentStreak)
	}
	return nil
}
