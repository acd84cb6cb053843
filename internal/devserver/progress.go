package devserver

import (
	"net/http"
	"strconv"

	"github.com/joescharf/alden/internal/api"
)

// progressLocked computes the user's statistics. Today is the current UTC
// date; only completed sessions that started today count toward it.
func (s *Server) progressLocked() api.Progress {
	y, m, d := s.now().UTC().Date()
	p := api.Progress{
		DailyGoal:        s.user.dailyGoal,
		CurrentStreak:    s.user.currentStreak,
		TotalStudyTime:   s.user.totalStudy,
		TotalMindfulTime: s.user.totalMindful,
	}
	for _, r := range s.sessions {
		ry, rm, rd := r.start.Date()
		if r.completed && ry == y && rm == m && rd == d {
			p.TodayStudyTime += r.duration
			p.SessionsToday++
		}
	}
	for _, ms := range s.mindful {
		if ms.Completed {
			p.MindfulSessionsCompleted++
		}
	}
	return p
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.progressLocked())
}

// updateDailyGoal accepts either a JSON body or a goal_minutes query parameter.
func (s *Server) updateDailyGoal(w http.ResponseWriter, r *http.Request) {
	var in api.DailyGoalUpdate
	if v := r.URL.Query().Get("goal_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "goal_minutes must be an integer")
			return
		}
		in.GoalMinutes = n
	} else if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if in.GoalMinutes <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "goal_minutes must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.dailyGoal = in.GoalMinutes
	writeJSON(w, http.StatusOK, api.DailyGoalResult{Message: "Daily goal updated successfully", NewGoal: in.GoalMinutes})
}

// updateStreak extends the streak when today's study time meets the goal and
// resets it otherwise.
func (s *Server) updateStreak(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progressLocked()
	met := p.TodayStudyTime >= s.user.dailyGoal
	if met {
		s.user.currentStreak++
	} else {
		s.user.currentStreak = 0
	}
	writeJSON(w, http.StatusOK, api.StreakResult{Message: "Streak updated", CurrentStreak: s.user.currentStreak, GoalMet: met})
}
