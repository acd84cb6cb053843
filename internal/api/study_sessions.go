package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CreateStudySession starts a study session on the backend.
func (c *Client) CreateStudySession(ctx context.Context, in StudySessionCreate) (*StudySession, error) {
	var out StudySession
	if err := c.request(ctx, http.MethodPost, "/study-sessions/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListStudySessions returns the user's study sessions.
func (c *Client) ListStudySessions(ctx context.Context) ([]StudySession, error) {
	var out []StudySession
	if err := c.request(ctx, http.MethodGet, "/study-sessions/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveStudySession returns the session in progress, or nil when the
// backend reports that there is none. Absence is not an error.
func (c *Client) GetActiveStudySession(ctx context.Context) (*StudySession, error) {
	var out StudySession
	err := c.request(ctx, http.MethodGet, "/study-sessions/active", nil, &out)
	if err != nil {
		if IsNotFound(err) || strings.Contains(err.Error(), "No active") {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// EndStudySession ends the session with the given ID.
func (c *Client) EndStudySession(ctx context.Context, id string, in StudySessionEnd) (*StudySession, error) {
	var out StudySession
	if err := c.request(ctx, http.MethodPut, "/study-sessions/"+url.PathEscape(id)+"/end", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
