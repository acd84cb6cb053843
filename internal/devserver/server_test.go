package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/llm"
	"github.com/joescharf/alden/internal/models"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func setupTestServer(t *testing.T, opts ...Option) (*Server, http.Handler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	srv := NewServer(append([]Option{WithClock(clock.Now)}, opts...)...)
	return srv, srv.Router(), clock
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["detail"]
}

func TestHealthAndCORS(t *testing.T) {
	_, h, _ := setupTestServer(t)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, h, "OPTIONS", "/api/progress/", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStudySessionLifecycle(t *testing.T) {
	_, h, clock := setupTestServer(t)

	w := do(t, h, "GET", "/api/study-sessions/active", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active study session found", detail(t, w))

	w = do(t, h, "POST", "/api/study-sessions/", `{"subject":"Math","goal":"Ch 3","technique":"pomodoro","duration":25}`)
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[api.StudySession](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-05-01T09:00:00.000000", created.StartTime)
	assert.False(t, created.Completed)

	w = do(t, h, "POST", "/api/study-sessions/", `{"subject":"Bio","technique":"deep_work","duration":50}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, detail(t, w), "already have an active study session")

	w = do(t, h, "GET", "/api/study-sessions/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[api.StudySession](t, w).ID)

	clock.Advance(25*time.Minute + 59*time.Second)
	w = do(t, h, "PUT", "/api/study-sessions/"+created.ID+"/end", `{"focus_score":8,"notes":"solid"}`)
	require.Equal(t, http.StatusOK, w.Code)
	ended := decode[api.StudySession](t, w)
	assert.True(t, ended.Completed)
	assert.Equal(t, 25, ended.Duration)
	require.NotNil(t, ended.FocusScore)
	assert.Equal(t, 8, *ended.FocusScore)
	require.NotNil(t, ended.EndTime)

	w = do(t, h, "GET", "/api/progress/", "")
	p := decode[api.Progress](t, w)
	assert.Equal(t, 25, p.TodayStudyTime)
	assert.Equal(t, 25, p.TotalStudyTime)
	assert.Equal(t, 1, p.SessionsToday)

	w = do(t, h, "PUT", "/api/study-sessions/nope/end", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndStudySession_DurationIsElapsed(t *testing.T) {
	_, h, clock := setupTestServer(t)

	w := do(t, h, "POST", "/api/study-sessions/", `{"subject":"Math","technique":"pomodoro","duration":25}`)
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[api.StudySession](t, w)
	assert.Equal(t, 25, created.Duration)

	clock.Advance(40*time.Minute + 30*time.Second)
	w = do(t, h, "PUT", "/api/study-sessions/"+created.ID+"/end", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	ended := decode[api.StudySession](t, w)
	assert.True(t, ended.Completed)
	assert.Equal(t, 40, ended.Duration)

	p := decode[api.Progress](t, do(t, h, "GET", "/api/progress/", ""))
	assert.Equal(t, 40, p.TodayStudyTime)
}

func TestCreateStudySession_Validation(t *testing.T) {
	_, h, _ := setupTestServer(t)

	w := do(t, h, "POST", "/api/study-sessions/", `{"subject":"","technique":"pomodoro","duration":25}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, h, "POST", "/api/study-sessions/", `{"subject":"Math","technique":"cram","duration":25}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, h, "POST", "/api/study-sessions/", `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListStudySessions_NewestFirst(t *testing.T) {
	_, h, clock := setupTestServer(t)

	var ids []string
	for _, subj := range []string{"A", "B"} {
		w := do(t, h, "POST", "/api/study-sessions/", `{"subject":"`+subj+`","technique":"pomodoro","duration":25}`)
		id := decode[api.StudySession](t, w).ID
		ids = append(ids, id)
		clock.Advance(time.Minute)
		do(t, h, "PUT", "/api/study-sessions/"+id+"/end", `{}`)
	}

	list := decode[[]api.StudySession](t, do(t, h, "GET", "/api/study-sessions/", ""))
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID)
	assert.Equal(t, ids[0], list[1].ID)
}

func TestMindfulSessions(t *testing.T) {
	_, h, _ := setupTestServer(t)

	catalog := decode[[]api.CatalogEntry](t, do(t, h, "GET", "/api/mindful-sessions/prebuilt", ""))
	require.Len(t, catalog, 4)
	assert.Equal(t, "focus-boost", catalog[0].ID)

	w := do(t, h, "POST", "/api/mindful-sessions/", `{"title":"Focus Boost","category":"pre_study","duration":240,"audio_url":"/audio/focus-boost.mp3","description":"d"}`)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[api.MindfulSession](t, w)

	w = do(t, h, "PUT", "/api/mindful-sessions/"+m.ID+"/complete", `{"rating":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[api.MindfulSession](t, w)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Rating)
	assert.Equal(t, 5, *done.Rating)

	p := decode[api.Progress](t, do(t, h, "GET", "/api/progress/", ""))
	assert.Equal(t, 4, p.TotalMindfulTime)
	assert.Equal(t, 1, p.MindfulSessionsCompleted)

	list := decode[[]api.MindfulSession](t, do(t, h, "GET", "/api/mindful-sessions/", ""))
	assert.Len(t, list, 1)

	w = do(t, h, "PUT", "/api/mindful-sessions/nope/complete", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Mindful session not found", detail(t, w))

	w = do(t, h, "POST", "/api/mindful-sessions/", `{"title":"x","category":"nap"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChat_ReplyArrivesAsynchronously(t *testing.T) {
	srv, h, _ := setupTestServer(t)

	w := do(t, h, "POST", "/api/ai/conversations", `{"title":"Chem","subject":"Chemistry"}`)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[api.Conversation](t, w)
	require.NotNil(t, conv.Subject)

	w = do(t, h, "POST", "/api/ai/chat", `{"message":"Explain moles in chemistry","conversation_id":"`+conv.ID+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.ChatResponse](t, w)
	assert.Equal(t, thinkingAck, resp.Response)
	assert.Equal(t, conv.ID, resp.ConversationID)
	assert.NotEmpty(t, resp.MessageID)

	srv.Wait()

	got := decode[api.Conversation](t, do(t, h, "GET", "/api/ai/conversations/"+conv.ID, ""))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0].Type)
	assert.Equal(t, resp.MessageID, got.Messages[0].ID)
	assert.Equal(t, "assistant", got.Messages[1].Type)
	assert.Contains(t, got.Messages[1].Content, "Science can be challenging")

	msgs := decode[[]api.Message](t, do(t, h, "GET", "/api/ai/conversations/"+conv.ID+"/messages", ""))
	assert.Len(t, msgs, 2)
}

func TestChat_NewConversationAndNotFound(t *testing.T) {
	srv, h, _ := setupTestServer(t)

	w := do(t, h, "POST", "/api/ai/chat", `{"message":"What is the derivative of x squared?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.ChatResponse](t, w)
	srv.Wait()

	convs := decode[[]api.Conversation](t, do(t, h, "GET", "/api/ai/conversations", ""))
	require.Len(t, convs, 1)
	assert.Equal(t, resp.ConversationID, convs[0].ID)
	assert.Equal(t, "Chat about What is the derivative of x sq...", convs[0].Title)

	w = do(t, h, "POST", "/api/ai/chat", `{"message":"hi","conversation_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Conversation not found", detail(t, w))
}

func TestChat_NewConversationTitleKeepsRunes(t *testing.T) {
	srv, h, _ := setupTestServer(t)

	msg := strings.Repeat("é", 40)
	w := do(t, h, "POST", "/api/ai/chat", `{"message":"`+msg+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	srv.Wait()

	convs := decode[[]api.Conversation](t, do(t, h, "GET", "/api/ai/conversations", ""))
	require.Len(t, convs, 1)
	title := convs[0].Title
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, "Chat about "+strings.Repeat("é", 30)+"...", title)
}

type brokenResponder struct{}

func (brokenResponder) Reply(context.Context, llm.ReplyRequest) (string, error) {
	return "", errors.New("model unavailable")
}

func (brokenResponder) Flashcards(context.Context, string, string) ([]models.Flashcard, error) {
	return nil, errors.New("model unavailable")
}

func TestChat_ReplyFailureStoresApology(t *testing.T) {
	srv, h, _ := setupTestServer(t, WithResponder(brokenResponder{}))

	resp := decode[api.ChatResponse](t, do(t, h, "POST", "/api/ai/chat", `{"message":"hello"}`))
	srv.Wait()

	msgs := decode[[]api.Message](t, do(t, h, "GET", "/api/ai/conversations/"+resp.ConversationID+"/messages", ""))
	require.Len(t, msgs, 2)
	assert.Equal(t, replyFailure, msgs[1].Content)

	w := do(t, h, "POST", "/api/ai/flashcards", `{"content":"cells"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate flashcards", detail(t, w))
}

func TestConversations_OrderAndDelete(t *testing.T) {
	srv, h, clock := setupTestServer(t)

	a := decode[api.Conversation](t, do(t, h, "POST", "/api/ai/conversations", `{"title":"A"}`))
	clock.Advance(time.Minute)
	b := decode[api.Conversation](t, do(t, h, "POST", "/api/ai/conversations", `{"title":"B"}`))
	clock.Advance(time.Minute)
	do(t, h, "POST", "/api/ai/chat", `{"message":"hi","conversation_id":"`+a.ID+`"}`)
	srv.Wait()

	convs := decode[[]api.Conversation](t, do(t, h, "GET", "/api/ai/conversations", ""))
	require.Len(t, convs, 2)
	assert.Equal(t, a.ID, convs[0].ID)
	assert.Equal(t, b.ID, convs[1].ID)

	w := do(t, h, "DELETE", "/api/ai/conversations/"+a.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, "DELETE", "/api/ai/conversations/"+a.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	msgs := decode[[]api.Message](t, do(t, h, "GET", "/api/ai/conversations/"+a.ID+"/messages", ""))
	assert.Empty(t, msgs)
}

func TestFlashcards(t *testing.T) {
	_, h, _ := setupTestServer(t)

	w := do(t, h, "POST", "/api/ai/flashcards", `{"content":"Photosynthesis","subject":"Biology"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[api.FlashcardResponse](t, w).Flashcards, 3)

	w = do(t, h, "POST", "/api/ai/flashcards?content=Photosynthesis", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "POST", "/api/ai/flashcards", `{"content":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func uploadRequest(t *testing.T, name, contentType, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/api/documents/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestDocuments(t *testing.T) {
	_, h, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "notes.txt", "text/plain", "mitochondria"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode[api.Document](t, w)
	assert.Equal(t, "notes.txt", doc.Name)
	assert.Equal(t, "text", doc.Type)
	assert.Equal(t, "uploads/"+doc.ID+".txt", doc.URI)
	require.NotNil(t, doc.Size)
	assert.Equal(t, int64(len("mitochondria")), *doc.Size)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "scan.pdf", "application/pdf", "%PDF"))
	require.Equal(t, http.StatusOK, w.Code)
	pdf := decode[api.Document](t, w)
	assert.Equal(t, "pdf", pdf.Type)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "clip.mp4", "video/mp4", "x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := decode[[]api.Document](t, do(t, h, "GET", "/api/documents/", ""))
	require.Len(t, list, 2)
	assert.Equal(t, pdf.ID, list[0].ID)

	content := decode[api.DocumentContent](t, do(t, h, "GET", "/api/documents/"+doc.ID+"/content", ""))
	assert.Equal(t, "mitochondria", content.Content)
	content = decode[api.DocumentContent](t, do(t, h, "GET", "/api/documents/"+pdf.ID+"/content", ""))
	assert.Equal(t, "pdf", content.Type)

	assert.Equal(t, http.StatusOK, do(t, h, "DELETE", "/api/documents/"+doc.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/api/documents/"+doc.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/documents/"+doc.ID+"/content", "").Code)
}

func TestDailyGoalAndStreak(t *testing.T) {
	_, h, clock := setupTestServer(t)

	w := do(t, h, "PUT", "/api/progress/daily-goal", `{"goal_minutes":30}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, decode[api.DailyGoalResult](t, w).NewGoal)

	w = do(t, h, "PUT", "/api/progress/daily-goal?goal_minutes=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, decode[api.Progress](t, do(t, h, "GET", "/api/progress/", "")).DailyGoal)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, "PUT", "/api/progress/daily-goal", `{"goal_minutes":0}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, "PUT", "/api/progress/daily-goal?goal_minutes=abc", "").Code)

	res := decode[api.StreakResult](t, do(t, h, "POST", "/api/progress/streak/update", ""))
	assert.False(t, res.GoalMet)
	assert.Zero(t, res.CurrentStreak)

	id := decode[api.StudySession](t, do(t, h, "POST", "/api/study-sessions/", `{"subject":"Math","technique":"deep_work","duration":20}`)).ID
	clock.Advance(20 * time.Minute)
	do(t, h, "PUT", "/api/study-sessions/"+id+"/end", `{}`)

	for want := 1; want <= 2; want++ {
		res = decode[api.StreakResult](t, do(t, h, "POST", "/api/progress/streak/update", ""))
		assert.True(t, res.GoalMet)
		assert.Equal(t, want, res.CurrentStreak, strconv.Itoa(want))
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv, h, _ := setupTestServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	c := api.New(api.Config{BaseURL: ts.URL + "/api"})
	ctx := context.Background()

	active, err := c.GetActiveStudySession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	sess, err := c.CreateStudySession(ctx, api.StudySessionCreate{Subject: "Math", Technique: "pomodoro", Duration: 25})
	require.NoError(t, err)

	_, err = c.CreateStudySession(ctx, api.StudySessionCreate{Subject: "Math", Technique: "pomodoro", Duration: 25})
	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)

	_, err = c.EndStudySession(ctx, sess.ID, api.StudySessionEnd{})
	require.NoError(t, err)

	conv, err := c.CreateConversation(ctx, api.ConversationCreate{Title: "T"})
	require.NoError(t, err)
	_, err = c.SendChatMessage(ctx, api.ChatRequest{Message: "exam prep", ConversationID: conv.ID})
	require.NoError(t, err)
	srv.Wait()

	got, err := c.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	err = c.DeleteConversation(ctx, "missing")
	assert.True(t, api.IsNotFound(err))
}
