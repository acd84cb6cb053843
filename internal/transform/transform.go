// Package transform maps backend wire records to the domain model. It is the
// only place where snake_case fields and ISO 8601 strings are handled.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
)

// timeLayouts are tried in order. The backend may omit the zone offset, in
// which case the time is taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses an ISO 8601 timestamp as emitted by the backend.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTime renders t in the wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// StudySession converts a wire study session.
func StudySession(in api.StudySession) (models.StudySession, error) {
	start, err := ParseTime(in.StartTime)
	if err != nil {
		return models.StudySession{}, fmt.Errorf("study session %s start_time: %w", in.ID, err)
	}
	end, err := parseOptionalTime(in.EndTime)
	if err != nil {
		return models.StudySession{}, fmt.Errorf("study session %s end_time: %w", in.ID, err)
	}
	return models.StudySession{
		ID:         in.ID,
		Subject:    in.Subject,
		Goal:       in.Goal,
		Technique:  models.Technique(in.Technique),
		Duration:   in.Duration,
		StartTime:  start,
		EndTime:    end,
		Completed:  in.Completed,
		FocusScore: in.FocusScore,
		Notes:      in.Notes,
	}, nil
}

// StudySessionToWire is the reverse of StudySession.
func StudySessionToWire(in models.StudySession) api.StudySession {
	return api.StudySession{
		ID:         in.ID,
		Subject:    in.Subject,
		Goal:       in.Goal,
		Technique:  string(in.Technique),
		Duration:   in.Duration,
		StartTime:  FormatTime(in.StartTime),
		EndTime:    formatOptionalTime(in.EndTime),
		Completed:  in.Completed,
		FocusScore: in.FocusScore,
		Notes:      in.Notes,
	}
}

// StudySessions converts a list, failing on the first malformed record.
func StudySessions(in []api.StudySession) ([]models.StudySession, error) {
	out := make([]models.StudySession, 0, len(in))
	for _, s := range in {
		m, err := StudySession(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// MindfulSession converts a wire mindfulness session record.
func MindfulSession(in api.MindfulSession) (models.MindfulSession, error) {
	completedAt, err := parseOptionalTime(in.CompletedAt)
	if err != nil {
		return models.MindfulSession{}, fmt.Errorf("mindful session %s completed_at: %w", in.ID, err)
	}
	return models.MindfulSession{
		ID:          in.ID,
		Title:       in.Title,
		Category:    models.MindfulCategory(in.Category),
		Duration:    in.Duration,
		AudioURL:    in.AudioURL,
		Description: in.Description,
		Completed:   in.Completed,
		CompletedAt: completedAt,
		Rating:      in.Rating,
	}, nil
}

// MindfulSessions converts a list of records.
func MindfulSessions(in []api.MindfulSession) ([]models.MindfulSession, error) {
	out := make([]models.MindfulSession, 0, len(in))
	for _, s := range in {
		m, err := MindfulSession(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// CatalogEntry converts a prebuilt catalog entry. Catalog entries are never
// completed.
func CatalogEntry(in api.CatalogEntry) models.MindfulSession {
	return models.MindfulSession{
		ID:          in.ID,
		Title:       in.Title,
		Category:    models.MindfulCategory(in.Category),
		Duration:    in.Duration,
		AudioURL:    in.AudioURL,
		Description: in.Description,
		Catalog:     true,
	}
}

// Message converts a wire chat message.
func Message(in api.Message) (models.Message, error) {
	ts, err := ParseTime(in.Timestamp)
	if err != nil {
		return models.Message{}, fmt.Errorf("message %s timestamp: %w", in.ID, err)
	}
	return models.Message{
		ID:             in.ID,
		Type:           models.MessageType(in.Type),
		Content:        in.Content,
		Timestamp:      ts,
		ConversationID: in.ConversationID,
	}, nil
}

// Conversation converts a wire conversation and its messages.
func Conversation(in api.Conversation) (models.Conversation, error) {
	last, err := ParseTime(in.LastMessage)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("conversation %s last_message: %w", in.ID, err)
	}
	msgs := make([]models.Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		msg, err := Message(m)
		if err != nil {
			return models.Conversation{}, fmt.Errorf("conversation %s: %w", in.ID, err)
		}
		msgs = append(msgs, msg)
	}
	return models.Conversation{
		ID:          in.ID,
		Title:       in.Title,
		Subject:     in.Subject,
		LastMessage: last,
		Messages:    msgs,
	}, nil
}

// ConversationToWire is the reverse of Conversation.
func ConversationToWire(in models.Conversation) api.Conversation {
	msgs := make([]api.Message, 0, len(in.Messages))
	for _, m := range in.Messages {
		msgs = append(msgs, api.Message{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Type:           string(m.Type),
			Content:        m.Content,
			Timestamp:      FormatTime(m.Timestamp),
		})
	}
	return api.Conversation{
		ID:          in.ID,
		Title:       in.Title,
		Subject:     in.Subject,
		LastMessage: FormatTime(in.LastMessage),
		Messages:    msgs,
	}
}

// Conversations converts a list of conversations.
func Conversations(in []api.Conversation) ([]models.Conversation, error) {
	out := make([]models.Conversation, 0, len(in))
	for _, c := range in {
		m, err := Conversation(c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Document converts a wire document record.
func Document(in api.Document) (models.Document, error) {
	uploaded, err := ParseTime(in.UploadDate)
	if err != nil {
		return models.Document{}, fmt.Errorf("document %s upload_date: %w", in.ID, err)
	}
	return models.Document{
		ID:         in.ID,
		Name:       in.Name,
		Type:       models.DocumentType(in.Type),
		URI:        in.URI,
		UploadDate: uploaded,
		Size:       in.Size,
	}, nil
}

// Documents converts a list of document records.
func Documents(in []api.Document) ([]models.Document, error) {
	out := make([]models.Document, 0, len(in))
	for _, d := range in {
		m, err := Document(d)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DocumentContent converts extracted document content.
func DocumentContent(in api.DocumentContent) models.DocumentContent {
	return models.DocumentContent{Content: in.Content, Type: models.DocumentType(in.Type)}
}

// Progress converts the aggregate statistics.
func Progress(in api.Progress) models.Progress {
	return models.Progress{
		DailyGoal:                in.DailyGoal,
		TodayStudyTime:           in.TodayStudyTime,
		CurrentStreak:            in.CurrentStreak,
		TotalStudyTime:           in.TotalStudyTime,
		TotalMindfulTime:         in.TotalMindfulTime,
		SessionsToday:            in.SessionsToday,
		MindfulSessionsCompleted: in.MindfulSessionsCompleted,
	}
}

// StreakResult converts a streak update outcome.
func StreakResult(in api.StreakResult) models.StreakResult {
	return models.StreakResult{Message: in.Message, CurrentStreak: in.CurrentStreak, GoalMet: in.GoalMet}
}

// Flashcards converts generated flashcards.
func Flashcards(in []api.Flashcard) []models.Flashcard {
	out := make([]models.Flashcard, 0, len(in))
	for _, f := range in {
		out = append(out, models.Flashcard{Question: f.Question, Answer: f.Answer})
	}
	return out
}
