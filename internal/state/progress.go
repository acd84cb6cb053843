package state

import (
	"context"

	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/transform"
)

// LoadUserProgress replaces the progress statistics with the backend's.
func (s *Store) LoadUserProgress(ctx context.Context) {
	wire, err := s.api.GetProgress(ctx)
	if err != nil {
		s.fail("load progress", err)
		return
	}
	p := transform.Progress(*wire)
	s.update(func(st *Snapshot) { st.Progress = p })
}

// UpdateDailyGoal changes the daily study goal in minutes.
func (s *Store) UpdateDailyGoal(ctx context.Context, minutes int) error {
	if minutes <= 0 || minutes > 24*60 {
		return invalid("daily goal must be between 1 and 1440 minutes, got %d", minutes)
	}
	s.clearError()
	res, err := s.api.UpdateDailyGoal(ctx, minutes)
	if err != nil {
		return s.fail("update daily goal", err)
	}
	goal := res.NewGoal
	if goal <= 0 {
		goal = minutes
	}
	s.update(func(st *Snapshot) { st.Progress.DailyGoal = goal })
	s.save(ctx)
	return nil
}

// UpdateStreak asks the backend to re-evaluate the streak for today.
func (s *Store) UpdateStreak(ctx context.Context) (models.StreakResult, error) {
	s.clearError()
	wire, err := s.api.UpdateStreak(ctx)
	if err != nil {
		return models.StreakResult{}, s.fail("update streak", err)
	}
	res := transform.StreakResult(*wire)
	s.update(func(st *Snapshot) { st.Progress.CurrentStreak = res.CurrentStreak })
	return res, nil
}
