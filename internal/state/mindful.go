package state

import (
	"context"
	"fmt"
	"slices"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/transform"
)

// LoadMindfulSessions merges the prebuilt catalog with the server's records.
// A server record supersedes the catalog entry with the same title.
func (s *Store) LoadMindfulSessions(ctx context.Context) {
	var catalog []models.MindfulSession
	entries, err := s.api.MindfulCatalog(ctx)
	if err != nil {
		s.fail("load mindful catalog", err)
		catalog = s.catalogEntries()
	} else {
		for _, e := range entries {
			catalog = append(catalog, transform.CatalogEntry(e))
		}
	}

	wire, err := s.api.ListMindfulSessions(ctx)
	if err != nil {
		s.fail("load mindful sessions", err)
		return
	}
	records, err := transform.MindfulSessions(wire)
	if err != nil {
		s.fail("load mindful sessions", err)
		return
	}

	merged := mergeMindful(catalog, records)
	var completed []string
	for _, m := range records {
		if m.Completed {
			completed = append(completed, m.ID)
		}
	}
	s.update(func(st *Snapshot) {
		st.MindfulSessions = merged
		st.CompletedMindfulSessions = completed
	})
}

func (s *Store) catalogEntries() []models.MindfulSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MindfulSession
	for _, m := range s.st.MindfulSessions {
		if m.Catalog {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return models.DefaultMindfulCatalog()
	}
	return out
}

// mergeMindful lists catalog entries without a server record first, then the
// server records in server order.
func mergeMindful(catalog, records []models.MindfulSession) []models.MindfulSession {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.Title] = true
	}
	out := make([]models.MindfulSession, 0, len(catalog)+len(records))
	for _, c := range catalog {
		if !seen[c.Title] {
			out = append(out, c)
		}
	}
	return append(out, records...)
}

// CompleteMindfulSession marks a mindfulness session completed with an
// optional 1-5 rating. Catalog-only entries are first created on the server.
func (s *Store) CompleteMindfulSession(ctx context.Context, id string, rating *int) (*models.MindfulSession, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, invalid("rating must be between 1 and 5, got %d", *rating)
	}
	snap := s.Snapshot()
	m, ok := snap.MindfulSession(id)
	if !ok {
		return nil, fmt.Errorf("mindful session %s: %w", id, ErrNotFound)
	}

	s.clearError()
	target := m.ID
	if m.Catalog {
		created, err := s.api.CreateMindfulSession(ctx, api.MindfulSessionCreate{
			Title:       m.Title,
			Category:    string(m.Category),
			Duration:    m.Duration,
			AudioURL:    m.AudioURL,
			Description: m.Description,
		})
		if err != nil {
			return nil, s.fail("create mindful session", err)
		}
		target = created.ID
	}

	wire, err := s.api.CompleteMindfulSession(ctx, target, rating)
	if err != nil {
		return nil, s.fail("complete mindful session", err)
	}
	done, err := transform.MindfulSession(*wire)
	if err != nil {
		return nil, s.fail("complete mindful session", err)
	}

	s.update(func(st *Snapshot) {
		for i := range st.MindfulSessions {
			if st.MindfulSessions[i].ID == id {
				st.MindfulSessions[i] = done
				break
			}
		}
		if !slices.Contains(st.CompletedMindfulSessions, done.ID) {
			st.CompletedMindfulSessions = append(st.CompletedMindfulSessions, done.ID)
		}
	})
	s.log.Info().Str("id", done.ID).Str("title", done.Title).Msg("mindful session completed")

	s.LoadUserProgress(ctx)
	return &done, nil
}
