package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/output"
	"github.com/joescharf/alden/internal/state"
)

var (
	mindfulCategory string
	mindfulRating   int
)

var mindfulCmd = &cobra.Command{
	Use:     "mindful",
	Aliases: []string{"mind"},
	Short:   "Guided mindfulness sessions",
}

var mindfulListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List mindfulness sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mindfulListRun(cmd.Context())
	},
}

var mindfulCompleteCmd = &cobra.Command{
	Use:   "complete <id|title>",
	Short: "Mark a mindfulness session completed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rating *int
		if cmd.Flags().Changed("rating") {
			rating = &mindfulRating
		}
		return mindfulCompleteRun(cmd.Context(), strings.Join(args, " "), rating)
	},
}

func init() {
	mindfulListCmd.Flags().StringVar(&mindfulCategory, "category", "", "Filter by category (quick_relief, pre_study, post_study, exam_support)")
	mindfulCompleteCmd.Flags().IntVarP(&mindfulRating, "rating", "r", 0, "Rating from 1 to 5")

	mindfulCmd.AddCommand(mindfulListCmd)
	mindfulCmd.AddCommand(mindfulCompleteCmd)
	rootCmd.AddCommand(mindfulCmd)
}

func mindfulListRun(ctx context.Context) error {
	if mindfulCategory != "" && !models.MindfulCategory(mindfulCategory).Valid() {
		return fmt.Errorf("%w: unknown category %q", state.ErrValidation, mindfulCategory)
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadMindfulSessions(ctx)
	// The catalog falls back to built-in entries, so a load error is a warning.
	if msg := a.Snapshot().Error; msg != "" {
		ui.Warning("%s", msg)
	}

	table := ui.Table([]string{"ID", "Title", "Category", "Length", "Status", "Rating"})
	for _, m := range a.Snapshot().MindfulSessions {
		if mindfulCategory != "" && string(m.Category) != mindfulCategory {
			continue
		}
		status := "-"
		if m.Completed {
			status = "completed"
		}
		rating := "-"
		if m.Rating != nil {
			rating = fmt.Sprintf("%d/5", *m.Rating)
		}
		table.Append([]string{
			m.ID,
			output.Cyan(m.Title),
			string(m.Category),
			output.Minutes(m.Duration / 60),
			output.StatusColor(status),
			rating,
		})
	}
	table.Render()
	return nil
}

func mindfulCompleteRun(ctx context.Context, ref string, rating *int) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadMindfulSessions(ctx)
	m, ok := findMindful(a.Snapshot().MindfulSessions, ref)
	if !ok {
		return fmt.Errorf("mindful session %q: %w", ref, state.ErrNotFound)
	}

	if dryRun {
		ui.DryRunMsg("Would complete %q", m.Title)
		return nil
	}

	done, err := a.CompleteMindfulSession(ctx, m.ID, rating)
	if err != nil {
		return err
	}
	ui.Success("Completed %s (%s)", output.Cyan(done.Title), output.Minutes(done.Duration/60))
	return nil
}

// findMindful matches ref against session IDs first, then titles without
// regard to case.
func findMindful(sessions []models.MindfulSession, ref string) (models.MindfulSession, bool) {
	for _, m := range sessions {
		if m.ID == ref {
			return m, true
		}
	}
	for _, m := range sessions {
		if strings.EqualFold(m.Title, ref) {
			return m, true
		}
	}
	return models.MindfulSession{}, false
}
