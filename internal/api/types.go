package api

// Wire-format records as sent by the backend: snake_case fields and ISO 8601
// timestamp strings. Optional fields are pointers.

// StudySession is a study session record.
type StudySession struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id,omitempty"`
	Subject    string  `json:"subject"`
	Goal       string  `json:"goal"`
	Technique  string  `json:"technique"`
	Duration   int     `json:"duration"`
	StartTime  string  `json:"start_time"`
	EndTime    *string `json:"end_time,omitempty"`
	Completed  bool    `json:"completed"`
	FocusScore *int    `json:"focus_score,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// StudySessionCreate is the body for starting a study session.
type StudySessionCreate struct {
	Subject   string `json:"subject"`
	Goal      string `json:"goal"`
	Technique string `json:"technique"`
	Duration  int    `json:"duration"`
}

// StudySessionEnd is the body for ending a study session.
type StudySessionEnd struct {
	FocusScore *int    `json:"focus_score,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// MindfulSession is a mindfulness session record.
type MindfulSession struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id,omitempty"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Duration    int     `json:"duration"`
	AudioURL    string  `json:"audio_url"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// MindfulSessionCreate is the body for creating a mindfulness session.
type MindfulSessionCreate struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Duration    int    `json:"duration"`
	AudioURL    string `json:"audio_url"`
	Description string `json:"description"`
}

// MindfulComplete is the body for completing a mindfulness session.
type MindfulComplete struct {
	Rating *int `json:"rating,omitempty"`
}

// CatalogEntry is a prebuilt mindfulness exercise.
type CatalogEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Duration    int    `json:"duration"`
	AudioURL    string `json:"audio_url"`
	Description string `json:"description"`
}

// Message is a chat message record.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Type           string `json:"type"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

// Conversation is a chat conversation record including its messages.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Title       string    `json:"title"`
	Subject     *string   `json:"subject,omitempty"`
	LastMessage string    `json:"last_message"`
	CreatedAt   string    `json:"created_at,omitempty"`
	Messages    []Message `json:"messages"`
}

// ConversationCreate is the body for creating a conversation.
type ConversationCreate struct {
	Title   string  `json:"title"`
	Subject *string `json:"subject,omitempty"`
}

// ChatRequest is the body for sending a chat message.
type ChatRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Documents      []string `json:"documents,omitempty"`
}

// ChatResponse acknowledges a sent message. The assistant reply is produced
// asynchronously and must be fetched by reloading the conversation.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// FlashcardRequest is the body for generating flashcards.
type FlashcardRequest struct {
	Content string  `json:"content"`
	Subject *string `json:"subject,omitempty"`
}

// Flashcard is a generated question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FlashcardResponse wraps generated flashcards.
type FlashcardResponse struct {
	Flashcards []Flashcard `json:"flashcards"`
}

// Document is an uploaded document record.
type Document struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id,omitempty"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	URI        string `json:"uri"`
	Size       *int64 `json:"size,omitempty"`
	UploadDate string `json:"upload_date"`
}

// DocumentContent is the extracted content of a document.
type DocumentContent struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Progress is the user's aggregate statistics.
type Progress struct {
	DailyGoal                int `json:"daily_goal"`
	TodayStudyTime           int `json:"today_study_time"`
	CurrentStreak            int `json:"current_streak"`
	TotalStudyTime           int `json:"total_study_time"`
	TotalMindfulTime         int `json:"total_mindful_time"`
	SessionsToday            int `json:"sessions_today"`
	MindfulSessionsCompleted int `json:"mindful_sessions_completed"`
}

// DailyGoalUpdate is the body for changing the daily goal.
type DailyGoalUpdate struct {
	GoalMinutes int `json:"goal_minutes"`
}

// DailyGoalResult acknowledges a daily goal change.
type DailyGoalResult struct {
	Message string `json:"message"`
	NewGoal int    `json:"new_goal"`
}

// StreakResult is the outcome of a streak update.
type StreakResult struct {
	Message       string `json:"message"`
	CurrentStreak int    `json:"current_streak"`
	GoalMet       bool   `json:"goal_met"`
}

// MessageResult is a generic acknowledgement body.
type MessageResult struct {
	Message string `json:"message"`
}
