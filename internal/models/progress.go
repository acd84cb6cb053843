package models

// DefaultDailyGoal is the daily study goal in minutes before any is configured.
const DefaultDailyGoal = 120

// Progress holds the user's aggregate study statistics. All times are minutes.
type Progress struct {
	DailyGoal                int
	TodayStudyTime           int
	CurrentStreak            int
	TotalStudyTime           int
	TotalMindfulTime         int
	SessionsToday            int
	MindfulSessionsCompleted int
}

// GoalMet reports whether today's study time reached the daily goal.
func (p Progress) GoalMet() bool {
	return p.DailyGoal > 0 && p.TodayStudyTime >= p.DailyGoal
}

// StreakResult is the outcome of a streak update.
type StreakResult struct {
	Message       string
	CurrentStreak int
	GoalMet       bool
}
