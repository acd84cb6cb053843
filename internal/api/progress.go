package api

import (
	"context"
	"net/http"
)

// GetProgress returns the user's aggregate statistics.
func (c *Client) GetProgress(ctx context.Context) (*Progress, error) {
	var out Progress
	if err := c.request(ctx, http.MethodGet, "/progress/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDailyGoal sets the daily study goal in minutes.
func (c *Client) UpdateDailyGoal(ctx context.Context, minutes int) (*DailyGoalResult, error) {
	var out DailyGoalResult
	if err := c.request(ctx, http.MethodPut, "/progress/daily-goal", DailyGoalUpdate{GoalMinutes: minutes}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStreak asks the backend to re-evaluate the study streak for today.
func (c *Client) UpdateStreak(ctx context.Context) (*StreakResult, error) {
	var out StreakResult
	if err := c.request(ctx, http.MethodPost, "/progress/streak/update", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
