// Package devserver is an in-memory implementation of the study backend's
// REST API, used for local development and end-to-end tests of the client.
// All data lives for the lifetime of the process.
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/joescharf/alden/internal/llm"
	"github.com/joescharf/alden/internal/models"
)

// DefaultPort is the port the dev backend listens on.
const DefaultPort = 8000

// replyFailure is stored as the assistant reply when generation fails.
const replyFailure = "I'm sorry, I'm experiencing technical difficulties. Please try again later."

// thinkingAck is returned by the chat endpoint while the reply is generated.
const thinkingAck = "I'm thinking about your question..."

// Server provides the REST API handlers.
type Server struct {
	mu       sync.Mutex
	sessions []*studyRecord   // creation order
	mindful  []*mindfulRecord // creation order
	convs    map[string]*conversation
	docs     []*document // upload order
	user     user

	responder llm.Responder
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string

	replies sync.WaitGroup
}

type user struct {
	dailyGoal     int
	currentStreak int
	totalStudy    int // minutes
	totalMindful  int // minutes
}

// Option customizes a Server.
type Option func(*Server)

// WithResponder sets how assistant replies and flashcards are generated.
func WithResponder(r llm.Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates an empty dev backend. Without WithResponder, replies
// come from llm.Fallback.
func NewServer(opts ...Option) *Server {
	s := &Server{
		convs:     make(map[string]*conversation),
		user:      user{dailyGoal: models.DefaultDailyGoal},
		responder: llm.Fallback{},
		log:       zerolog.Nop(),
		now:       time.Now,
		newID:     func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until all in-flight assistant replies have been stored.
func (s *Server) Wait() {
	s.replies.Wait()
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /api/study-sessions/{$}", s.createStudySession)
	mux.HandleFunc("GET /api/study-sessions/{$}", s.listStudySessions)
	mux.HandleFunc("GET /api/study-sessions/active", s.activeStudySession)
	mux.HandleFunc("PUT /api/study-sessions/{id}/end", s.endStudySession)

	mux.HandleFunc("POST /api/mindful-sessions/{$}", s.createMindfulSession)
	mux.HandleFunc("GET /api/mindful-sessions/{$}", s.listMindfulSessions)
	mux.HandleFunc("GET /api/mindful-sessions/prebuilt", s.mindfulCatalog)
	mux.HandleFunc("PUT /api/mindful-sessions/{id}/complete", s.completeMindfulSession)

	mux.HandleFunc("POST /api/ai/chat", s.chat)
	mux.HandleFunc("GET /api/ai/conversations", s.listConversations)
	mux.HandleFunc("POST /api/ai/conversations", s.createConversation)
	mux.HandleFunc("GET /api/ai/conversations/{id}", s.getConversation)
	mux.HandleFunc("DELETE /api/ai/conversations/{id}", s.deleteConversation)
	mux.HandleFunc("GET /api/ai/conversations/{id}/messages", s.listMessages)
	mux.HandleFunc("POST /api/ai/flashcards", s.flashcards)

	mux.HandleFunc("POST /api/documents/upload", s.uploadDocument)
	mux.HandleFunc("GET /api/documents/{$}", s.listDocuments)
	mux.HandleFunc("DELETE /api/documents/{id}", s.deleteDocument)
	mux.HandleFunc("GET /api/documents/{id}/content", s.documentContent)

	mux.HandleFunc("GET /api/progress/{$}", s.progress)
	mux.HandleFunc("PUT /api/progress/daily-goal", s.updateDailyGoal)
	mux.HandleFunc("POST /api/progress/streak/update", s.updateStreak)

	return s.logRequests(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// decodeJSON decodes the request body into v, writing a 422 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Alden Backend API", "version": "1.0.0"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
