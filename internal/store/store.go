package store

import (
	"context"
	"errors"
)

// DefaultName is the entry under which the app state subset is saved.
const DefaultName = "alden-app-store"

// ErrNotFound is returned by Load when no entry has been saved yet.
var ErrNotFound = errors.New("persisted state not found")

// PersistedState is the subset of app state kept on the device. Everything
// else (sessions, messages, documents, computed progress) is authoritative on
// the server and re-fetched on startup.
type PersistedState struct {
	ActiveConversation string `json:"activeConversation,omitempty"`
	CurrentScreen      string `json:"currentScreen,omitempty"`
	DailyGoal          int    `json:"dailyGoal,omitempty"`
}

// Store defines the local persistence interface for alden.
type Store interface {
	Load(ctx context.Context, name string) (*PersistedState, error)
	Save(ctx context.Context, name string, st *PersistedState) error
	Delete(ctx context.Context, name string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
