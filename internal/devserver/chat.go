package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/llm"
)

// replyTimeout bounds assistant reply generation.
const replyTimeout = 60 * time.Second

type conversation struct {
	id       string
	title    string
	subject  *string
	created  time.Time
	last     time.Time
	messages []message
}

type message struct {
	id      string
	typ     string
	content string
	ts      time.Time
}

func (c *conversation) wire() api.Conversation {
	out := api.Conversation{
		ID:          c.id,
		UserID:      defaultUserID,
		Title:       c.title,
		Subject:     c.subject,
		LastMessage: isoTime(c.last),
		CreatedAt:   isoTime(c.created),
		Messages:    make([]api.Message, 0, len(c.messages)),
	}
	for _, m := range c.messages {
		out.Messages = append(out.Messages, m.wire(c.id))
	}
	return out
}

func (m message) wire(conversationID string) api.Message {
	return api.Message{
		ID:             m.id,
		ConversationID: conversationID,
		Type:           m.typ,
		Content:        m.content,
		Timestamp:      isoTime(m.ts),
	}
}

// appendLocked adds a message and bumps the conversation's last-message time.
func (s *Server) appendLocked(c *conversation, typ, content string) message {
	m := message{id: s.newID(), typ: typ, content: content, ts: s.now().UTC()}
	c.messages = append(c.messages, m)
	c.last = m.ts
	return m
}

func (s *Server) newConversationLocked(title string, subject *string) *conversation {
	now := s.now().UTC()
	c := &conversation{id: s.newID(), title: title, subject: subject, created: now, last: now}
	s.convs[c.id] = c
	return c
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var in api.ChatRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		writeError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	s.mu.Lock()
	var c *conversation
	if in.ConversationID == "" {
		title := in.Message
		if r := []rune(title); len(r) > 30 {
			title = string(r[:30])
		}
		c = s.newConversationLocked("Chat about "+title+"...", nil)
	} else {
		c = s.convs[in.ConversationID]
		if c == nil {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
	}
	userMsg := s.appendLocked(c, "user", in.Message)
	req := llm.ReplyRequest{Message: in.Message, Documents: len(in.Documents)}
	if c.subject != nil {
		req.Subject = *c.subject
	}
	id := c.id
	s.mu.Unlock()

	s.replies.Add(1)
	go s.reply(context.WithoutCancel(r.Context()), id, req)

	writeJSON(w, http.StatusOK, api.ChatResponse{
		Response:       thinkingAck,
		ConversationID: id,
		MessageID:      userMsg.id,
	})
}

// reply generates and stores the assistant reply for a conversation.
func (s *Server) reply(ctx context.Context, conversationID string, req llm.ReplyRequest) {
	defer s.replies.Done()
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	text, err := s.responder.Reply(ctx, req)
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.Warn().Err(err).Str("conversation", conversationID).Msg("reply generation failed")
		text = replyFailure
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.convs[conversationID]; c != nil {
		s.appendLocked(c, "assistant", text)
	}
}

func (s *Server) listConversations(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := make([]*conversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, c)
	}
	slices.SortFunc(convs, func(a, b *conversation) int {
		if c := b.last.Compare(a.last); c != 0 {
			return c
		}
		return strings.Compare(b.id, a.id)
	})
	out := make([]api.Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.wire())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var in api.ConversationCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.newConversationLocked(in.Title, in.Subject)
	writeJSON(w, http.StatusOK, c.wire())
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.convs[r.PathValue("id")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, c.wire())
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.convs[id] == nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	delete(s.convs, id)
	writeMessage(w, "Conversation deleted successfully")
}

// listMessages returns an empty list for unknown conversations.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Message{}
	if c := s.convs[id]; c != nil {
		for _, m := range c.messages {
			out = append(out, m.wire(id))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// flashcards accepts either a JSON body or content/subject query parameters.
func (s *Server) flashcards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := api.FlashcardRequest{Content: q.Get("content")}
	if subject := q.Get("subject"); subject != "" {
		in.Subject = &subject
	}
	if in.Content == "" {
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
			return
		}
	}
	if strings.TrimSpace(in.Content) == "" {
		writeError(w, http.StatusUnprocessableEntity, "content is required")
		return
	}

	var subject string
	if in.Subject != nil {
		subject = *in.Subject
	}
	cards, err := s.responder.Flashcards(r.Context(), in.Content, subject)
	if err != nil {
		s.log.Warn().Err(err).Msg("flashcard generation failed")
		writeError(w, http.StatusInternalServerError, "Failed to generate flashcards")
		return
	}
	out := api.FlashcardResponse{Flashcards: make([]api.Flashcard, 0, len(cards))}
	for _, c := range cards {
		out.Flashcards = append(out.Flashcards, api.Flashcard{Question: c.Question, Answer: c.Answer})
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeBody decodes an optional JSON body; an empty body is not an error.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
