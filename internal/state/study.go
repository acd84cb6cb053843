package state

import (
	"context"
	"strings"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/transform"
)

// StudySessionInput describes a study session to start.
type StudySessionInput struct {
	Subject   string
	Goal      string
	Technique models.Technique
	Duration  int // minutes
}

func (in StudySessionInput) validate() error {
	if strings.TrimSpace(in.Subject) == "" {
		return invalid("subject is required")
	}
	if !in.Technique.Valid() {
		return invalid("unknown technique %q", in.Technique)
	}
	if in.Duration <= 0 {
		return invalid("duration must be positive, got %d", in.Duration)
	}
	return nil
}

// EndStudySessionInput carries the optional reflection recorded when a
// session ends.
type EndStudySessionInput struct {
	FocusScore *int // 1-10
	Notes      *string
}

// StartStudySession creates a session on the backend and makes it the active
// session. It fails with ErrSessionActive while another session is active.
func (s *Store) StartStudySession(ctx context.Context, in StudySessionInput) (*models.StudySession, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.st.ActiveSession != nil || s.starting {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	s.starting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	s.clearError()
	wire, err := s.api.CreateStudySession(ctx, api.StudySessionCreate{
		Subject:   strings.TrimSpace(in.Subject),
		Goal:      strings.TrimSpace(in.Goal),
		Technique: string(in.Technique),
		Duration:  in.Duration,
	})
	if err != nil {
		return nil, s.fail("start study session", err)
	}
	sess, err := transform.StudySession(*wire)
	if err != nil {
		return nil, s.fail("start study session", err)
	}

	s.update(func(st *Snapshot) {
		a := sess
		st.ActiveSession = &a
		st.IsTimerRunning = true
	})
	s.log.Info().Str("id", sess.ID).Str("subject", sess.Subject).Msg("study session started")
	return &sess, nil
}

// EndStudySession ends the active session, records it in the session list and
// refreshes progress.
func (s *Store) EndStudySession(ctx context.Context, in EndStudySessionInput) (*models.StudySession, error) {
	if in.FocusScore != nil && (*in.FocusScore < 1 || *in.FocusScore > 10) {
		return nil, invalid("focus score must be between 1 and 10, got %d", *in.FocusScore)
	}

	s.mu.Lock()
	active := s.st.ActiveSession
	if active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if s.ending {
		s.mu.Unlock()
		return nil, ErrSessionEnding
	}
	s.ending = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ending = false
		s.mu.Unlock()
	}()

	s.clearError()
	wire, err := s.api.EndStudySession(ctx, active.ID, api.StudySessionEnd{
		FocusScore: in.FocusScore,
		Notes:      in.Notes,
	})
	if err != nil {
		return nil, s.fail("end study session", err)
	}
	sess, err := transform.StudySession(*wire)
	if err != nil {
		return nil, s.fail("end study session", err)
	}

	s.update(func(st *Snapshot) {
		replaced := false
		for i := range st.StudySessions {
			if st.StudySessions[i].ID == sess.ID {
				st.StudySessions[i] = sess
				replaced = true
				break
			}
		}
		if !replaced {
			st.StudySessions = append([]models.StudySession{sess}, st.StudySessions...)
		}
		if st.ActiveSession != nil && st.ActiveSession.ID == sess.ID {
			st.ActiveSession = nil
		}
		st.IsTimerRunning = false
	})
	s.log.Info().Str("id", sess.ID).Int("duration", sess.Duration).Msg("study session ended")

	s.LoadUserProgress(ctx)
	return &sess, nil
}

// CheckActiveSession asks the backend for the in-progress session. "No active
// session" is a normal outcome and clears the local active session.
func (s *Store) CheckActiveSession(ctx context.Context) {
	wire, err := s.api.GetActiveStudySession(ctx)
	if err != nil {
		s.fail("check active session", err)
		return
	}
	if wire == nil {
		s.update(func(st *Snapshot) {
			if st.ActiveSession != nil {
				st.ActiveSession = nil
				st.IsTimerRunning = false
			}
		})
		return
	}
	sess, err := transform.StudySession(*wire)
	if err != nil {
		s.fail("check active session", err)
		return
	}
	s.update(func(st *Snapshot) {
		st.ActiveSession = &sess
		st.IsTimerRunning = true
	})
}

// LoadStudySessions replaces the session history with the backend's.
func (s *Store) LoadStudySessions(ctx context.Context) {
	wire, err := s.api.ListStudySessions(ctx)
	if err != nil {
		s.fail("load study sessions", err)
		return
	}
	sessions, err := transform.StudySessions(wire)
	if err != nil {
		s.fail("load study sessions", err)
		return
	}
	s.update(func(st *Snapshot) { st.StudySessions = sessions })
}
