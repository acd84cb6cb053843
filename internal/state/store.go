// Package state is the application state container. It holds the in-memory
// model shown by the presentation layer and exposes actions, which are the
// only way to change it. Actions call the backend, map the response through
// transform and apply the result; subscribers are notified after each change.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/store"
)

// DefaultReloadDelay is how long SendMessage waits before fetching the
// conversation again to pick up the assistant reply.
const DefaultReloadDelay = 2 * time.Second

// DefaultScreen is the screen shown on first launch.
const DefaultScreen = "home"

var (
	// ErrValidation wraps input errors detected before any network call.
	ErrValidation = errors.New("invalid input")
	// ErrSessionActive is returned when starting a session while one is active.
	ErrSessionActive = errors.New("a study session is already active")
	// ErrNoActiveSession is returned when ending a session while none is active.
	ErrNoActiveSession = errors.New("no active study session")
	// ErrSessionEnding is returned when ending a session that is already being ended.
	ErrSessionEnding = errors.New("the study session is already being ended")
	// ErrNotFound is returned when an action refers to an unknown local entity.
	ErrNotFound = errors.New("not found")
)

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, a...))
}

// Backend is the part of the remote service client used by the store.
type Backend interface {
	CreateStudySession(ctx context.Context, in api.StudySessionCreate) (*api.StudySession, error)
	ListStudySessions(ctx context.Context) ([]api.StudySession, error)
	GetActiveStudySession(ctx context.Context) (*api.StudySession, error)
	EndStudySession(ctx context.Context, id string, in api.StudySessionEnd) (*api.StudySession, error)

	CreateMindfulSession(ctx context.Context, in api.MindfulSessionCreate) (*api.MindfulSession, error)
	ListMindfulSessions(ctx context.Context) ([]api.MindfulSession, error)
	CompleteMindfulSession(ctx context.Context, id string, rating *int) (*api.MindfulSession, error)
	MindfulCatalog(ctx context.Context) ([]api.CatalogEntry, error)

	SendChatMessage(ctx context.Context, in api.ChatRequest) (*api.ChatResponse, error)
	ListConversations(ctx context.Context) ([]api.Conversation, error)
	CreateConversation(ctx context.Context, in api.ConversationCreate) (*api.Conversation, error)
	GetConversation(ctx context.Context, id string) (*api.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ListMessages(ctx context.Context, conversationID string) ([]api.Message, error)
	GenerateFlashcards(ctx context.Context, in api.FlashcardRequest) ([]api.Flashcard, error)

	UploadDocument(ctx context.Context, in api.Upload) (*api.Document, error)
	ListDocuments(ctx context.Context) ([]api.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DocumentContent(ctx context.Context, id string) (*api.DocumentContent, error)

	GetProgress(ctx context.Context) (*api.Progress, error)
	UpdateDailyGoal(ctx context.Context, minutes int) (*api.DailyGoalResult, error)
	UpdateStreak(ctx context.Context) (*api.StreakResult, error)
}

var _ Backend = (*api.Client)(nil)

// Snapshot is an immutable copy of the store state.
type Snapshot struct {
	StudySessions []models.StudySession
	ActiveSession *models.StudySession

	MindfulSessions          []models.MindfulSession
	CompletedMindfulSessions []string

	Conversations      []models.Conversation
	ActiveConversation string // "" when none
	Documents          []models.Document
	IsAidaTyping       bool

	Progress models.Progress

	CurrentScreen  string
	IsTimerRunning bool
	IsLoading      bool
	Error          string // last backend error, "" when none
}

// Conversation returns the conversation with the given id.
func (s Snapshot) Conversation(id string) (models.Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// MindfulSession returns the mindfulness session with the given id.
func (s Snapshot) MindfulSession(id string) (models.MindfulSession, bool) {
	for _, m := range s.MindfulSessions {
		if m.ID == id {
			return m, true
		}
	}
	return models.MindfulSession{}, false
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.StudySessions = append([]models.StudySession(nil), s.StudySessions...)
	if s.ActiveSession != nil {
		a := *s.ActiveSession
		out.ActiveSession = &a
	}
	out.MindfulSessions = append([]models.MindfulSession(nil), s.MindfulSessions...)
	out.CompletedMindfulSessions = append([]string(nil), s.CompletedMindfulSessions...)
	out.Conversations = make([]models.Conversation, len(s.Conversations))
	for i, c := range s.Conversations {
		c.Messages = append([]models.Message(nil), c.Messages...)
		out.Conversations[i] = c
	}
	out.Documents = append([]models.Document(nil), s.Documents...)
	return out
}

func initialState() Snapshot {
	return Snapshot{
		MindfulSessions: models.DefaultMindfulCatalog(),
		Progress:        models.Progress{DailyGoal: models.DefaultDailyGoal},
		CurrentScreen:   DefaultScreen,
	}
}

// Store is the application state container. Construct it with New in the
// composition root and share it by reference.
type Store struct {
	api     Backend
	persist store.Store
	name    string
	log     zerolog.Logger

	reloadDelay      time.Duration
	reconcileTimeout time.Duration
	now              func() time.Time
	newID            func() string

	mu       sync.RWMutex
	st       Snapshot
	version  uint64 // bumped on every update
	starting bool   // a StartStudySession call is in flight
	ending   bool   // an EndStudySession call is in flight

	// notifyMu orders deliveries; delivered is the newest version sent.
	notifyMu  sync.Mutex
	delivered uint64

	subMu     sync.Mutex
	subs      map[int]func(Snapshot)
	nextSubID int

	pending sync.WaitGroup
}

// Option customizes a Store.
type Option func(*Store)

// WithPersister sets where the persisted subset of state is saved.
func WithPersister(p store.Store) Option {
	return func(s *Store) { s.persist = p }
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithReloadDelay sets the delay before a sent message's conversation is reloaded.
func WithReloadDelay(d time.Duration) Option {
	return func(s *Store) { s.reloadDelay = d }
}

// WithReconcileTimeout bounds the background conversation reload.
func WithReconcileTimeout(d time.Duration) Option {
	return func(s *Store) { s.reconcileTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc replaces the generator for locally created message ids.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a Store backed by the given remote service client.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		api:              backend,
		name:             store.DefaultName,
		log:              zerolog.Nop(),
		reloadDelay:      DefaultReloadDelay,
		reconcileTimeout: 2 * api.DefaultTimeout,
		now:              time.Now,
		newID:            func() string { return ulid.Make().String() },
		st:               initialState(),
		subs:             make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.clone()
}

// Subscribe registers fn to be called with the new state after every change.
// Deliveries are serialized and never go back in time: a snapshot older than
// one already delivered is skipped. fn may read the store but must not
// mutate it. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// update applies fn under the write lock and notifies subscribers.
func (s *Store) update(fn func(st *Snapshot)) {
	s.mu.Lock()
	fn(&s.st)
	s.version++
	v := s.version
	snap := s.st.clone()
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v <= s.delivered {
		return
	}
	s.delivered = v

	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// fail records a backend error in the Error field and returns it unchanged.
func (s *Store) fail(op string, err error) error {
	s.log.Warn().Err(err).Str("op", op).Msg("action failed")
	s.update(func(st *Snapshot) { st.Error = err.Error() })
	return err
}

// clearError resets the Error field at the start of a user-initiated action.
func (s *Store) clearError() {
	s.mu.RLock()
	empty := s.st.Error == ""
	s.mu.RUnlock()
	if !empty {
		s.update(func(st *Snapshot) { st.Error = "" })
	}
}

// ClearError dismisses the current error.
func (s *Store) ClearError() {
	s.update(func(st *Snapshot) { st.Error = "" })
}

// SetCurrentScreen records the screen the user is on.
func (s *Store) SetCurrentScreen(ctx context.Context, screen string) {
	s.update(func(st *Snapshot) { st.CurrentScreen = screen })
	s.save(ctx)
}

// SetTimerRunning toggles the running-timer flag.
func (s *Store) SetTimerRunning(running bool) {
	s.update(func(st *Snapshot) { st.IsTimerRunning = running })
}

// Reset returns the store to its initial state.
func (s *Store) Reset(ctx context.Context) {
	s.update(func(st *Snapshot) { *st = initialState() })
	s.save(ctx)
}

// Wait blocks until all scheduled background reconciliation has finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Hydrate seeds the persisted subset of state from local storage. Missing or
// unreadable entries leave the defaults in place.
func (s *Store) Hydrate(ctx context.Context) {
	if s.persist == nil {
		return
	}
	saved, err := s.persist.Load(ctx, s.name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Msg("failed to load persisted state")
		}
		return
	}

	s.update(func(st *Snapshot) {
		st.ActiveConversation = saved.ActiveConversation
		if saved.CurrentScreen != "" {
			st.CurrentScreen = saved.CurrentScreen
		}
		if saved.DailyGoal > 0 {
			st.Progress.DailyGoal = saved.DailyGoal
		}
	})
	s.log.Debug().Str("name", s.name).Msg("hydrated persisted state")
}

// save writes the persisted subset. Failures are logged, never surfaced.
func (s *Store) save(ctx context.Context) {
	if s.persist == nil {
		return
	}
	s.mu.RLock()
	subset := &store.PersistedState{
		ActiveConversation: s.st.ActiveConversation,
		CurrentScreen:      s.st.CurrentScreen,
		DailyGoal:          s.st.Progress.DailyGoal,
	}
	s.mu.RUnlock()

	if err := s.persist.Save(context.WithoutCancel(ctx), s.name, subset); err != nil {
		s.log.Warn().Err(err).Msg("failed to save persisted state")
	}
}
