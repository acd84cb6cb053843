package api

import (
	"context"
	"net/http"
	"net/url"
)

// SendChatMessage posts a user message. An empty conversationID lets the
// backend create a new conversation.
func (c *Client) SendChatMessage(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.request(ctx, http.MethodPost, "/ai/chat", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConversations returns the user's conversations with their messages.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.request(ctx, http.MethodGet, "/ai/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation creates an empty conversation.
func (c *Client) CreateConversation(ctx context.Context, in ConversationCreate) (*Conversation, error) {
	var out Conversation
	if err := c.request(ctx, http.MethodPost, "/ai/conversations", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversation returns one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var out Conversation
	if err := c.request(ctx, http.MethodGet, "/ai/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/ai/conversations/"+url.PathEscape(id), nil, &MessageResult{})
}

// ListMessages returns the messages of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	path := "/ai/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateFlashcards asks the assistant for flashcards built from content.
func (c *Client) GenerateFlashcards(ctx context.Context, in FlashcardRequest) ([]Flashcard, error) {
	var out FlashcardResponse
	if err := c.request(ctx, http.MethodPost, "/ai/flashcards", in, &out); err != nil {
		return nil, err
	}
	return out.Flashcards, nil
}
