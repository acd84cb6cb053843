// Package llm generates study-assistant replies and flashcards, either with
// the Anthropic API or with canned fallback content.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/joescharf/alden/internal/models"
)

// ReplyRequest is a student question with optional study context.
type ReplyRequest struct {
	Message   string
	Subject   string // may be empty
	Documents int    // number of documents attached for reference
}

// Responder produces assistant replies and flashcards.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
	Flashcards(ctx context.Context, content, subject string) ([]models.Flashcard, error)
}

// Client wraps the Anthropic API.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

var _ Responder = (*Client)(nil)

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildReplyPrompt constructs the system and user prompts for a chat reply.
func buildReplyPrompt(req ReplyRequest) (system string, user string) {
	var sb strings.Builder
	sb.WriteString(`You are Aida, an AI study assistant. You help students with their studies by:
- Explaining complex concepts in simple terms
- Creating study materials like flashcards and quizzes
- Providing study strategies and techniques
- Answering questions about any subject
- Breaking down problems step by step`)
	if req.Subject != "" {
		sb.WriteString("\n\nThe student is currently studying: ")
		sb.WriteString(req.Subject)
	}
	if req.Documents > 0 {
		fmt.Fprintf(&sb, "\n\nThe student has uploaded %d document(s) for reference.", req.Documents)
	}
	sb.WriteString("\n\nRespond in a helpful, encouraging, and educational manner.")
	return sb.String(), req.Message
}

// buildFlashcardPrompt constructs the system and user prompts for flashcard generation.
func buildFlashcardPrompt(content, subject string) (system string, user string) {
	system = `You create study flashcards. Return ONLY a JSON array of 5-10 objects with these fields:
- "question": a short question testing one concept
- "answer": a concise, correct answer

Rules:
- Cover the most important concepts in the content
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if subject != "" {
		sb.WriteString("Focus on ")
		sb.WriteString(subject)
		sb.WriteString(" concepts.\n\n")
	}
	sb.WriteString("Create flashcards from this content:\n\n")
	sb.WriteString(content)
	user = sb.String()
	return
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

// Reply answers a student question.
func (c *Client) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	system, user := buildReplyPrompt(req)
	text, err := c.complete(ctx, system, user, 2048)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Flashcards generates question/answer pairs from study content.
func (c *Client) Flashcards(ctx context.Context, content, subject string) ([]models.Flashcard, error) {
	system, user := buildFlashcardPrompt(content, subject)
	text, err := c.complete(ctx, system, user, 4096)
	if err != nil {
		return nil, err
	}
	return parseFlashcards(text)
}

// parseFlashcards decodes a JSON array of flashcards, tolerating markdown fencing.
func parseFlashcards(text string) ([]models.Flashcard, error) {
	text = stripFences(text)

	var cards []models.Flashcard
	if err := json.Unmarshal([]byte(text), &cards); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	kept := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Question) != "" && strings.TrimSpace(c.Answer) != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no flashcards in LLM response")
	}
	return kept, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// WithFallback returns a Responder that answers with Fallback content whenever
// r fails. A nil r always uses the fallback.
func WithFallback(r Responder, log zerolog.Logger) Responder {
	if r == nil {
		return Fallback{}
	}
	return &fallbackResponder{primary: r, log: log}
}

type fallbackResponder struct {
	primary Responder
	log     zerolog.Logger
}

func (f *fallbackResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	text, err := f.primary.Reply(ctx, req)
	if err != nil {
		f.log.Warn().Err(err).Msg("reply generation failed, using fallback")
		return Fallback{}.Reply(ctx, req)
	}
	return text, nil
}

func (f *fallbackResponder) Flashcards(ctx context.Context, content, subject string) ([]models.Flashcard, error) {
	cards, err := f.primary.Flashcards(ctx, content, subject)
	if err != nil {
		f.log.Warn().Err(err).Msg("flashcard generation failed, using fallback")
		return Fallback{}.Flashcards(ctx, content, subject)
	}
	return cards, nil
}
