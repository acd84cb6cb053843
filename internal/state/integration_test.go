package state

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/devserver"
	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/store"
)

func setupDevBackend(t *testing.T) (*Store, *devserver.Server, store.Store) {
	t.Helper()
	srv := devserver.NewServer()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "alden.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })

	client := api.New(api.Config{BaseURL: ts.URL + "/api", MaxRetries: 0})
	s := New(client, WithPersister(db), WithReloadDelay(50*time.Millisecond))
	return s, srv, db
}

func TestDevBackend_StudyFlow(t *testing.T) {
	s, _, _ := setupDevBackend(t)
	ctx := context.Background()

	require.NoError(t, s.InitializeApp(ctx))
	snap := s.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.ActiveSession)
	assert.Len(t, snap.MindfulSessions, 4)
	assert.Equal(t, models.DefaultDailyGoal, snap.Progress.DailyGoal)

	_, err := s.StartStudySession(ctx, StudySessionInput{Subject: "Math", Technique: models.TechniquePomodoro, Duration: 25})
	require.NoError(t, err)
	_, err = s.StartStudySession(ctx, StudySessionInput{Subject: "Bio", Technique: models.TechniquePomodoro, Duration: 25})
	assert.ErrorIs(t, err, ErrSessionActive)

	// A fresh store sees the server's active session.
	other := New(s.api)
	other.CheckActiveSession(ctx)
	require.NotNil(t, other.Snapshot().ActiveSession)

	ended, err := s.EndStudySession(ctx, EndStudySessionInput{FocusScore: intPtr(7)})
	require.NoError(t, err)
	assert.True(t, ended.Completed)
	assert.Nil(t, s.Snapshot().ActiveSession)
	assert.Equal(t, 1, s.Snapshot().Progress.SessionsToday)

	other.CheckActiveSession(ctx)
	assert.Nil(t, other.Snapshot().ActiveSession)
	assert.Empty(t, other.Snapshot().Error)
}

func TestDevBackend_EndedDurationIsElapsed(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	ts := httptest.NewServer(devserver.NewServer(devserver.WithClock(clock)).Router())
	t.Cleanup(ts.Close)

	s := New(api.New(api.Config{BaseURL: ts.URL + "/api", MaxRetries: 0}))
	ctx := context.Background()

	sess, err := s.StartStudySession(ctx, StudySessionInput{Subject: "Math", Technique: models.TechniquePomodoro, Duration: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, sess.Duration)

	mu.Lock()
	now = now.Add(40*time.Minute + 30*time.Second)
	mu.Unlock()

	ended, err := s.EndStudySession(ctx, EndStudySessionInput{})
	require.NoError(t, err)
	assert.True(t, ended.Completed)
	assert.Equal(t, 40, ended.Duration)

	snap := s.Snapshot()
	require.Len(t, snap.StudySessions, 1)
	assert.Equal(t, 40, snap.StudySessions[0].Duration)
	assert.Equal(t, 40, snap.Progress.TodayStudyTime)
}

func TestDevBackend_LoadUserProgressIsStable(t *testing.T) {
	s, _, _ := setupDevBackend(t)
	ctx := context.Background()

	_, err := s.StartStudySession(ctx, StudySessionInput{Subject: "Math", Technique: models.TechniquePomodoro, Duration: 25})
	require.NoError(t, err)
	_, err = s.EndStudySession(ctx, EndStudySessionInput{})
	require.NoError(t, err)

	s.LoadUserProgress(ctx)
	first := s.Snapshot().Progress
	s.LoadUserProgress(ctx)
	second := s.Snapshot().Progress

	assert.Empty(t, s.Snapshot().Error)
	assert.Equal(t, first, second)
}

func TestDevBackend_ChatFlow(t *testing.T) {
	s, _, db := setupDevBackend(t)
	ctx := context.Background()

	id, err := s.CreateConversation(ctx, "", nil)
	require.NoError(t, err)

	require.NoError(t, s.SendMessage(ctx, id, "Can you help with algebra?"))
	assert.True(t, s.Snapshot().IsAidaTyping)
	s.Wait()

	snap := s.Snapshot()
	assert.False(t, snap.IsAidaTyping)
	conv, ok := snap.Conversation(id)
	require.True(t, ok)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, models.MessageTypeAssistant, conv.Messages[1].Type)
	assert.Contains(t, conv.Messages[1].Content, "math")

	saved, err := db.Load(ctx, store.DefaultName)
	require.NoError(t, err)
	assert.Equal(t, id, saved.ActiveConversation)

	// Hydration restores the selection in a new store.
	fresh := New(s.api, WithPersister(db))
	require.NoError(t, fresh.InitializeApp(ctx))
	assert.Equal(t, id, fresh.Snapshot().ActiveConversation)

	require.NoError(t, s.DeleteConversation(ctx, id))
	assert.Empty(t, s.Snapshot().ActiveConversation)

	err = s.DeleteConversation(ctx, id)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "Conversation not found", s.Snapshot().Error)
}

func TestDevBackend_MindfulAndDocuments(t *testing.T) {
	s, _, _ := setupDevBackend(t)
	ctx := context.Background()
	s.LoadMindfulSessions(ctx)

	done, err := s.CompleteMindfulSession(ctx, "sos-breathing", intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Snapshot().Progress.TotalMindfulTime)

	s.LoadMindfulSessions(ctx)
	snap := s.Snapshot()
	assert.Len(t, snap.MindfulSessions, 4)
	assert.Contains(t, snap.CompletedMindfulSessions, done.ID)
	m, ok := snap.MindfulSession(done.ID)
	require.True(t, ok)
	assert.False(t, m.Catalog)

	path := filepath.Join(t.TempDir(), "cells.txt")
	require.NoError(t, os.WriteFile(path, []byte("The cell is the basic unit of life."), 0o644))
	doc, err := s.UploadDocument(ctx, DocumentUpload{Type: models.DocumentTypeText, Path: path})
	require.NoError(t, err)

	content, err := s.DocumentContent(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "The cell is the basic unit of life.", content.Content)

	cards, err := s.GenerateFlashcards(ctx, content.Content, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, cards)

	require.NoError(t, s.RemoveDocument(ctx, doc.ID))
	s.LoadDocuments(ctx)
	assert.Empty(t, s.Snapshot().Documents)
}

func TestDevBackend_Unreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	s := New(api.New(api.Config{BaseURL: url + "/api", MaxRetries: 0}))
	require.NoError(t, s.InitializeApp(context.Background()))

	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Equal(t, api.ErrConnectivity.Error(), snap.Error)
}
