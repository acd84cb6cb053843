package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateMindfulSession records a mindfulness session for the user.
func (c *Client) CreateMindfulSession(ctx context.Context, in MindfulSessionCreate) (*MindfulSession, error) {
	var out MindfulSession
	if err := c.request(ctx, http.MethodPost, "/mindful-sessions/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMindfulSessions returns the user's mindfulness session records.
func (c *Client) ListMindfulSessions(ctx context.Context) ([]MindfulSession, error) {
	var out []MindfulSession
	if err := c.request(ctx, http.MethodGet, "/mindful-sessions/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteMindfulSession marks a session completed with an optional rating.
func (c *Client) CompleteMindfulSession(ctx context.Context, id string, rating *int) (*MindfulSession, error) {
	var out MindfulSession
	path := "/mindful-sessions/" + url.PathEscape(id) + "/complete"
	if err := c.request(ctx, http.MethodPut, path, MindfulComplete{Rating: rating}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MindfulCatalog returns the prebuilt mindfulness exercises.
func (c *Client) MindfulCatalog(ctx context.Context) ([]CatalogEntry, error) {
	var out []CatalogEntry
	if err := c.request(ctx, http.MethodGet, "/mindful-sessions/prebuilt", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
