package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/output"
	"github.com/joescharf/alden/internal/state"
	"github.com/joescharf/alden/internal/timer"
)

var (
	studyGoal      string
	studyTechnique string
	studyDuration  int
	studyFocus     int
	studyNotes     string
	studyLimit     int
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Manage study sessions",
}

var studyStartCmd = &cobra.Command{
	Use:   "start <subject>",
	Short: "Start a study session",
	Long: `Start a study session on the backend.

Techniques: pomodoro (25m default), deep_work, active_recall.
Only one session can be active at a time.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyStartRun(cmd.Context(), strings.Join(args, " "))
	},
}

var studyEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the active study session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var focus *int
		if cmd.Flags().Changed("focus") {
			focus = &studyFocus
		}
		var notes *string
		if cmd.Flags().Changed("notes") {
			notes = &studyNotes
		}
		return studyEndRun(cmd.Context(), focus, notes)
	},
}

var studyActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the active study session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyActiveRun(cmd.Context())
	},
}

var studyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List study sessions, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyListRun(cmd.Context())
	},
}

var studyTimerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Run a countdown for the active study session",
	Long: `Show a live countdown for the active session. When the countdown
reaches zero the session is ended. Press Ctrl-C to stop the countdown
without ending the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return studyTimerRun(cmd.Context())
	},
}

func init() {
	studyStartCmd.Flags().StringVarP(&studyGoal, "goal", "g", "", "What you want to accomplish")
	studyStartCmd.Flags().StringVarP(&studyTechnique, "technique", "t", string(models.TechniquePomodoro), "Study technique (pomodoro, deep_work, active_recall)")
	studyStartCmd.Flags().IntVarP(&studyDuration, "duration", "d", 25, "Planned duration in minutes")

	studyEndCmd.Flags().IntVar(&studyFocus, "focus", 0, "Focus score from 1 to 10")
	studyEndCmd.Flags().StringVar(&studyNotes, "notes", "", "Reflection notes")

	studyListCmd.Flags().IntVar(&studyLimit, "limit", 0, "Show at most this many sessions (0 for all)")

	studyCmd.AddCommand(studyStartCmd)
	studyCmd.AddCommand(studyEndCmd)
	studyCmd.AddCommand(studyActiveCmd)
	studyCmd.AddCommand(studyListCmd)
	studyCmd.AddCommand(studyTimerCmd)
	rootCmd.AddCommand(studyCmd)
}

func studyStartRun(ctx context.Context, subject string) error {
	in := state.StudySessionInput{
		Subject:   subject,
		Goal:      studyGoal,
		Technique: models.Technique(studyTechnique),
		Duration:  studyDuration,
	}

	if dryRun {
		ui.DryRunMsg("Would start %s session on %q for %d minutes", in.Technique, in.Subject, in.Duration)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	// Pick up a session started elsewhere before trying to start another.
	a.CheckActiveSession(ctx)

	ss, err := a.StartStudySession(ctx, in)
	if err != nil {
		if errors.Is(err, state.ErrSessionActive) {
			return fmt.Errorf("%w (end it with 'alden study end')", err)
		}
		return err
	}

	ui.Success("Started %s session on %s (%s)", output.TechniqueColor(string(ss.Technique)), output.Cyan(ss.Subject), output.Minutes(ss.Duration))
	ui.VerboseLog("Session ID: %s", ss.ID)
	return nil
}

func studyEndRun(ctx context.Context, focus *int, notes *string) error {
	if dryRun {
		ui.DryRunMsg("Would end the active study session")
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	a.CheckActiveSession(ctx)
	ss, err := a.EndStudySession(ctx, state.EndStudySessionInput{FocusScore: focus, Notes: notes})
	if err != nil {
		return err
	}

	studied := 0
	if ss.EndTime != nil {
		studied = int(ss.EndTime.Sub(ss.StartTime).Minutes())
	}
	ui.Success("Ended session on %s after %s", output.Cyan(ss.Subject), output.Minutes(studied))

	p := a.Snapshot().Progress
	fmt.Fprintf(ui.Out, "  Today: %s %s / %s\n", output.GoalBar(p.TodayStudyTime, p.DailyGoal, 20), output.Minutes(p.TodayStudyTime), output.Minutes(p.DailyGoal))
	return nil
}

func studyActiveRun(ctx context.Context) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.CheckActiveSession(ctx)
	if err := recordedError(a); err != nil {
		return err
	}

	ss := a.Snapshot().ActiveSession
	if ss == nil {
		ui.Info("No active study session.")
		return nil
	}

	fmt.Fprintf(ui.Out, "Subject:   %s\n", output.Cyan(ss.Subject))
	if ss.Goal != "" {
		fmt.Fprintf(ui.Out, "Goal:      %s\n", ss.Goal)
	}
	fmt.Fprintf(ui.Out, "Technique: %s\n", output.TechniqueColor(string(ss.Technique)))
	fmt.Fprintf(ui.Out, "Started:   %s\n", ss.StartTime.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(ui.Out, "Remaining: %s of %s\n", timer.Format(sessionRemaining(ss, time.Now())), output.Minutes(ss.Duration))
	return nil
}

func studyListRun(ctx context.Context) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadStudySessions(ctx)
	if err := recordedError(a); err != nil {
		return err
	}

	sessions := a.Snapshot().StudySessions
	if len(sessions) == 0 {
		ui.Info("No study sessions yet. Use 'alden study start <subject>' to begin.")
		return nil
	}
	if studyLimit > 0 && len(sessions) > studyLimit {
		sessions = sessions[:studyLimit]
	}

	table := ui.Table([]string{"Started", "Subject", "Technique", "Planned", "Status", "Focus"})
	for _, ss := range sessions {
		status := "active"
		if ss.Completed {
			status = "completed"
		}
		table.Append([]string{
			ss.StartTime.Local().Format("2006-01-02 15:04"),
			output.Cyan(ss.Subject),
			output.TechniqueColor(string(ss.Technique)),
			output.Minutes(ss.Duration),
			output.StatusColor(status),
			output.FocusColor(ss.FocusScore),
		})
	}
	table.Render()
	return nil
}

func studyTimerRun(ctx context.Context) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.CheckActiveSession(ctx)
	if err := recordedError(a); err != nil {
		return err
	}
	ss := a.Snapshot().ActiveSession
	if ss == nil {
		return state.ErrNoActiveSession
	}

	total := time.Duration(ss.Duration) * time.Minute
	completed := false
	cd := timer.NewCountdownFrom(total, sessionRemaining(ss, time.Now()), func() { completed = true })

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	a.SetTimerRunning(true)
	defer a.SetTimerRunning(false)

	ui.Info("%s on %s, Ctrl-C to stop", output.TechniqueColor(string(ss.Technique)), output.Cyan(ss.Subject))
	cd.Start()
	err = cd.Run(ctx, func(remaining time.Duration) {
		fmt.Fprintf(ui.Out, "\r  %s ", timer.Format(remaining))
	})
	fmt.Fprintln(ui.Out)

	if errors.Is(err, context.Canceled) {
		cd.Stop()
		ui.Warning("Timer stopped at %s; the session is still active", timer.Format(cd.Remaining()))
		return nil
	}
	if err != nil {
		return err
	}
	if !completed {
		return nil
	}

	ui.Success("Time's up!")
	return studyEndRun(context.Background(), nil, nil)
}

// sessionRemaining returns how much of the planned duration is left at now.
func sessionRemaining(ss *models.StudySession, now time.Time) time.Duration {
	remaining := time.Duration(ss.Duration)*time.Minute - now.Sub(ss.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}
