package state

import (
	"context"
	"io"
	"sync"

	"github.com/joescharf/alden/internal/api"
)

// fakeBackend is an in-memory Backend. Fields ending in Err make the
// corresponding call fail.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	sessions []api.StudySession
	active   *api.StudySession
	ended    *api.StudySession

	catalog    []api.CatalogEntry
	mindful    []api.MindfulSession
	createdMnd *api.MindfulSession

	convs    []api.Conversation
	messages []api.Message
	docs     []api.Document
	content  api.DocumentContent
	progress api.Progress
	streak   api.StreakResult
	cards    []api.Flashcard

	uploaded []byte

	// endGate, when set, holds EndStudySession until it is closed.
	endGate chan struct{}
	// hangReload makes GetConversation wait for its context to end.
	hangReload bool

	createErr, endErr, activeErr, listErr, sendErr, getConvErr error
	progressErr, deleteErr, catalogErr, panicOn                error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) CreateStudySession(_ context.Context, in api.StudySessionCreate) (*api.StudySession, error) {
	f.hit("CreateStudySession")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &api.StudySession{
		ID: "s1", Subject: in.Subject, Goal: in.Goal, Technique: in.Technique,
		Duration: in.Duration, StartTime: "2024-05-01T09:00:00",
	}, nil
}

func (f *fakeBackend) ListStudySessions(context.Context) ([]api.StudySession, error) {
	f.hit("ListStudySessions")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sessions, nil
}

func (f *fakeBackend) GetActiveStudySession(context.Context) (*api.StudySession, error) {
	f.hit("GetActiveStudySession")
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeBackend) EndStudySession(_ context.Context, id string, in api.StudySessionEnd) (*api.StudySession, error) {
	f.hit("EndStudySession")
	if f.endGate != nil {
		<-f.endGate
	}
	if f.endErr != nil {
		return nil, f.endErr
	}
	end := "2024-05-01T09:25:00"
	return &api.StudySession{
		ID: id, Subject: "Math", Technique: "pomodoro", Duration: 25,
		StartTime: "2024-05-01T09:00:00", EndTime: &end, Completed: true,
		FocusScore: in.FocusScore, Notes: in.Notes,
	}, nil
}

func (f *fakeBackend) CreateMindfulSession(_ context.Context, in api.MindfulSessionCreate) (*api.MindfulSession, error) {
	f.hit("CreateMindfulSession")
	f.createdMnd = &api.MindfulSession{
		ID: "m-" + in.Title, Title: in.Title, Category: in.Category,
		Duration: in.Duration, AudioURL: in.AudioURL, Description: in.Description,
	}
	return f.createdMnd, nil
}

func (f *fakeBackend) ListMindfulSessions(context.Context) ([]api.MindfulSession, error) {
	f.hit("ListMindfulSessions")
	return f.mindful, nil
}

func (f *fakeBackend) CompleteMindfulSession(_ context.Context, id string, rating *int) (*api.MindfulSession, error) {
	f.hit("CompleteMindfulSession")
	at := "2024-05-01T10:00:00"
	m := api.MindfulSession{ID: id, Title: "Focus Boost", Category: "pre_study", Duration: 240}
	if f.createdMnd != nil && f.createdMnd.ID == id {
		m = *f.createdMnd
	}
	m.Completed = true
	m.CompletedAt = &at
	m.Rating = rating
	return &m, nil
}

func (f *fakeBackend) MindfulCatalog(context.Context) ([]api.CatalogEntry, error) {
	f.hit("MindfulCatalog")
	if f.panicOn != nil {
		panic(f.panicOn)
	}
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeBackend) SendChatMessage(_ context.Context, in api.ChatRequest) (*api.ChatResponse, error) {
	f.hit("SendChatMessage")
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &api.ChatResponse{Response: "I'm thinking about your question...", ConversationID: in.ConversationID, MessageID: "ack"}, nil
}

func (f *fakeBackend) ListConversations(context.Context) ([]api.Conversation, error) {
	f.hit("ListConversations")
	return f.convs, nil
}

func (f *fakeBackend) CreateConversation(_ context.Context, in api.ConversationCreate) (*api.Conversation, error) {
	f.hit("CreateConversation")
	return &api.Conversation{ID: "c-new", Title: in.Title, Subject: in.Subject, LastMessage: "2024-05-01T09:00:00"}, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id string) (*api.Conversation, error) {
	f.hit("GetConversation")
	if f.hangReload {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getConvErr != nil {
		return nil, f.getConvErr
	}
	for _, c := range f.convs {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &api.HTTPError{StatusCode: 404, Message: "Conversation not found"}
}

func (f *fakeBackend) DeleteConversation(context.Context, string) error {
	f.hit("DeleteConversation")
	return f.deleteErr
}

func (f *fakeBackend) ListMessages(context.Context, string) ([]api.Message, error) {
	f.hit("ListMessages")
	return f.messages, nil
}

func (f *fakeBackend) GenerateFlashcards(context.Context, api.FlashcardRequest) ([]api.Flashcard, error) {
	f.hit("GenerateFlashcards")
	return f.cards, nil
}

func (f *fakeBackend) UploadDocument(_ context.Context, in api.Upload) (*api.Document, error) {
	f.hit("UploadDocument")
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.uploaded = b
	size := int64(len(b))
	return &api.Document{ID: "d-new", Name: in.Name, Type: "text", URI: "/uploads/" + in.Name, Size: &size, UploadDate: "2024-05-01T09:00:00"}, nil
}

func (f *fakeBackend) ListDocuments(context.Context) ([]api.Document, error) {
	f.hit("ListDocuments")
	return f.docs, nil
}

func (f *fakeBackend) DeleteDocument(context.Context, string) error {
	f.hit("DeleteDocument")
	return f.deleteErr
}

func (f *fakeBackend) DocumentContent(context.Context, string) (*api.DocumentContent, error) {
	f.hit("DocumentContent")
	return &f.content, nil
}

func (f *fakeBackend) GetProgress(context.Context) (*api.Progress, error) {
	f.hit("GetProgress")
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	return &f.progress, nil
}

func (f *fakeBackend) UpdateDailyGoal(_ context.Context, minutes int) (*api.DailyGoalResult, error) {
	f.hit("UpdateDailyGoal")
	return &api.DailyGoalResult{Message: "Daily goal updated", NewGoal: minutes}, nil
}

func (f *fakeBackend) UpdateStreak(context.Context) (*api.StreakResult, error) {
	f.hit("UpdateStreak")
	return &f.streak, nil
}
