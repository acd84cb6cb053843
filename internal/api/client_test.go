package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:      srv.URL + "/api",
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, DefaultMaxRetries, c.maxRetries)

	c = New(Config{BaseURL: "http://example.test/api/"})
	assert.Equal(t, "http://example.test/api", c.BaseURL())
}

func TestRequest_SendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/study-sessions/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body StudySessionCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Math", body.Subject)
		assert.Equal(t, "pomodoro", body.Technique)

		_ = json.NewEncoder(w).Encode(StudySession{
			ID:        "s1",
			Subject:   body.Subject,
			Technique: body.Technique,
			Duration:  body.Duration,
			StartTime: "2025-03-01T10:00:00",
		})
	})

	got, err := c.CreateStudySession(context.Background(), StudySessionCreate{Subject: "Math", Goal: "limits", Technique: "pomodoro", Duration: 25})
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, 25, got.Duration)
}

func TestRequest_ErrorDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"You already have an active study session. End it before starting a new one."}`))
	})

	_, err := c.CreateStudySession(context.Background(), StudySessionCreate{Subject: "Math"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "already have an active study session")
}

func TestRequest_ErrorFallsBackToStatusText(t *testing.T) {
	t.Run("non-JSON body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<html>nope</html>"))
		})
		err := c.DeleteDocument(context.Background(), "d1")
		require.Error(t, err)
		assert.Equal(t, "Forbidden", err.Error())
	})

	t.Run("structured detail", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","subject"],"msg":"field required"}]}`))
		})
		err := c.DeleteDocument(context.Background(), "d1")
		require.Error(t, err)
		assert.Equal(t, "Unprocessable Entity", err.Error())
	})
}

func TestGetActiveStudySession_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/study-sessions/active", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"No active study session found"}`))
	})

	got, err := c.GetActiveStudySession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetActiveStudySession_OtherErrorsPropagate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"bad"}`))
	})

	got, err := c.GetActiveStudySession(context.Background())
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestRetry_GetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"daily_goal":90,"today_study_time":30}`))
	})

	p, err := c.GetProgress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 90, p.DailyGoal)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "1 attempt + 2 retries")
}

func TestRetry_NoRetryForClientErrorsOrWrites(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateConversation(context.Background(), ConversationCreate{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	c2 := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	_, err = c2.GetConversation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestTimeout_Normalized(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, RetryBackoff: time.Millisecond})
	c.maxRetries = 0

	_, err := c.GetProgress(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, ErrTimeout.Error(), err.Error())
}

func TestConnectivity_Normalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Timeout: time.Second, MaxRetries: 1, RetryBackoff: time.Millisecond})
	_, err := c.ListStudySessions(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectivity))
	assert.Equal(t, ErrConnectivity.Error(), err.Error())
}

func TestCallerCancellationIsNotTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetProgress(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestUploadDocument_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/upload", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))
		assert.Equal(t, "derivatives are slopes", string(data))

		size := int64(len(data))
		_ = json.NewEncoder(w).Encode(Document{ID: "d1", Name: header.Filename, Type: "text", URI: "uploads/d1.txt", Size: &size, UploadDate: "2025-03-01T10:00:00Z"})
	})

	doc, err := c.UploadDocument(context.Background(), Upload{
		Name:        "notes.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("derivatives are slopes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)
	require.NotNil(t, doc.Size)
	assert.Equal(t, int64(22), *doc.Size)
}

func TestRoutes(t *testing.T) {
	type call struct{ method, path string }
	var got []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, call{r.Method, r.URL.Path})
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path == "/api/ai/conversations",
			r.URL.Path == "/api/mindful-sessions/prebuilt", r.URL.Path == "/api/mindful-sessions/":
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`[]`))
				return
			}
		}
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	_, _ = c.EndStudySession(ctx, "s1", StudySessionEnd{})
	_, _ = c.ListMindfulSessions(ctx)
	_, _ = c.CompleteMindfulSession(ctx, "m1", nil)
	_, _ = c.MindfulCatalog(ctx)
	_, _ = c.SendChatMessage(ctx, ChatRequest{Message: "hi"})
	_, _ = c.ListConversations(ctx)
	_ = c.DeleteConversation(ctx, "c1")
	_, _ = c.ListMessages(ctx, "c1")
	_, _ = c.GenerateFlashcards(ctx, FlashcardRequest{Content: "x"})
	_, _ = c.DocumentContent(ctx, "d1")
	_, _ = c.UpdateDailyGoal(ctx, 60)
	_, _ = c.UpdateStreak(ctx)

	assert.Equal(t, []call{
		{"PUT", "/api/study-sessions/s1/end"},
		{"GET", "/api/mindful-sessions/"},
		{"PUT", "/api/mindful-sessions/m1/complete"},
		{"GET", "/api/mindful-sessions/prebuilt"},
		{"POST", "/api/ai/chat"},
		{"GET", "/api/ai/conversations"},
		{"DELETE", "/api/ai/conversations/c1"},
		{"GET", "/api/ai/conversations/c1/messages"},
		{"POST", "/api/ai/flashcards"},
		{"GET", "/api/documents/d1/content"},
		{"PUT", "/api/progress/daily-goal"},
		{"POST", "/api/progress/streak/update"},
	}, got)
}
