package models

import "time"

// MessageType identifies the author of a chat message.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
)

// Message is a single chat message in a conversation.
type Message struct {
	ID             string
	Type           MessageType
	Content        string
	Timestamp      time.Time
	ConversationID string
}

// Conversation is a chat thread with the study assistant. Messages are kept
// in chronological order.
type Conversation struct {
	ID          string
	Title       string
	Subject     *string
	LastMessage time.Time
	Messages    []Message
}

// Flashcard is a generated question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
