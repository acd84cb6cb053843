package devserver

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
)

// isoTime formats t the way the production backend does: UTC without an
// offset suffix.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoTime(*t)
	return &s
}

type studyRecord struct {
	id         string
	subject    string
	goal       string
	technique  string
	duration   int // planned minutes, replaced by actual minutes on end
	start      time.Time
	end        *time.Time
	completed  bool
	focusScore *int
	notes      *string
}

func (r *studyRecord) wire() api.StudySession {
	return api.StudySession{
		ID:         r.id,
		UserID:     defaultUserID,
		Subject:    r.subject,
		Goal:       r.goal,
		Technique:  r.technique,
		Duration:   r.duration,
		StartTime:  isoTime(r.start),
		EndTime:    isoTimePtr(r.end),
		Completed:  r.completed,
		FocusScore: r.focusScore,
		Notes:      r.notes,
		CreatedAt:  isoTime(r.start),
	}
}

const defaultUserID = "default-user"

func (s *Server) activeLocked() *studyRecord {
	for _, r := range s.sessions {
		if !r.completed {
			return r
		}
	}
	return nil
}

func (s *Server) createStudySession(w http.ResponseWriter, r *http.Request) {
	var in api.StudySessionCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Subject) == "" {
		writeError(w, http.StatusUnprocessableEntity, "subject is required")
		return
	}
	if !models.Technique(in.Technique).Valid() {
		writeError(w, http.StatusUnprocessableEntity, "invalid technique")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked() != nil {
		writeError(w, http.StatusBadRequest, "You already have an active study session. End it before starting a new one.")
		return
	}
	rec := &studyRecord{
		id:        s.newID(),
		subject:   in.Subject,
		goal:      in.Goal,
		technique: in.Technique,
		duration:  in.Duration,
		start:     s.now().UTC(),
	}
	s.sessions = append(s.sessions, rec)
	writeJSON(w, http.StatusOK, rec.wire())
}

func (s *Server) listStudySessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.StudySession, 0, len(s.sessions))
	for _, r := range slices.Backward(s.sessions) {
		out = append(out, r.wire())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) activeStudySession(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.activeLocked()
	if rec == nil {
		writeError(w, http.StatusNotFound, "No active study session found")
		return
	}
	writeJSON(w, http.StatusOK, rec.wire())
}

func (s *Server) endStudySession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in api.StudySessionEnd
	if !decodeJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var rec *studyRecord
	for _, sr := range s.sessions {
		if sr.id == id {
			rec = sr
			break
		}
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Study session not found")
		return
	}

	end := s.now().UTC()
	minutes := int(end.Sub(rec.start).Minutes())
	rec.end = &end
	rec.completed = true
	rec.duration = minutes
	if in.FocusScore != nil {
		rec.focusScore = in.FocusScore
	}
	if in.Notes != nil {
		rec.notes = in.Notes
	}
	s.user.totalStudy += minutes

	s.log.Debug().Str("id", id).Int("minutes", minutes).Msg("study session ended")
	writeJSON(w, http.StatusOK, rec.wire())
}
