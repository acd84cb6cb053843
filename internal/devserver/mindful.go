package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
)

type mindfulRecord struct {
	api.MindfulSession
	created     time.Time
	completedAt *time.Time
}

func (m *mindfulRecord) wire() api.MindfulSession {
	out := m.MindfulSession
	out.UserID = defaultUserID
	out.CreatedAt = isoTime(m.created)
	out.CompletedAt = isoTimePtr(m.completedAt)
	return out
}

func (s *Server) createMindfulSession(w http.ResponseWriter, r *http.Request) {
	var in api.MindfulSessionCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	if !models.MindfulCategory(in.Category).Valid() {
		writeError(w, http.StatusUnprocessableEntity, "invalid category")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &mindfulRecord{
		MindfulSession: api.MindfulSession{
			ID:          s.newID(),
			Title:       in.Title,
			Category:    in.Category,
			Duration:    in.Duration,
			AudioURL:    in.AudioURL,
			Description: in.Description,
		},
		created: s.now().UTC(),
	}
	s.mindful = append(s.mindful, rec)
	writeJSON(w, http.StatusOK, rec.wire())
}

func (s *Server) listMindfulSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.MindfulSession, 0, len(s.mindful))
	for _, m := range s.mindful {
		out = append(out, m.wire())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) completeMindfulSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in api.MindfulComplete
	if !decodeJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mindful {
		if m.ID != id {
			continue
		}
		at := s.now().UTC()
		m.Completed = true
		m.completedAt = &at
		if in.Rating != nil {
			m.Rating = in.Rating
		}
		s.user.totalMindful += m.Duration / 60
		writeJSON(w, http.StatusOK, m.wire())
		return
	}
	writeError(w, http.StatusNotFound, "Mindful session not found")
}

func (s *Server) mindfulCatalog(w http.ResponseWriter, _ *http.Request) {
	catalog := models.DefaultMindfulCatalog()
	out := make([]api.CatalogEntry, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, api.CatalogEntry{
			ID:          m.ID,
			Title:       m.Title,
			Category:    string(m.Category),
			Duration:    m.Duration,
			AudioURL:    m.AudioURL,
			Description: m.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
