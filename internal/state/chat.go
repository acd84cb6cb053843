package state

import (
	"context"
	"strings"
	"time"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/transform"
)

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New Conversation"

// CreateConversation creates a conversation, prepends it to the list and makes
// it the active conversation. It returns the new conversation id.
func (s *Store) CreateConversation(ctx context.Context, title string, subject *string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}

	s.clearError()
	wire, err := s.api.CreateConversation(ctx, api.ConversationCreate{Title: title, Subject: subject})
	if err != nil {
		return "", s.fail("create conversation", err)
	}
	conv, err := transform.Conversation(*wire)
	if err != nil {
		return "", s.fail("create conversation", err)
	}

	s.update(func(st *Snapshot) {
		st.Conversations = append([]models.Conversation{conv}, st.Conversations...)
		st.ActiveConversation = conv.ID
	})
	s.save(ctx)
	return conv.ID, nil
}

// SendMessage sends content to a conversation. The user message is appended
// locally and the typing flag set before the request is made. Once the
// backend acknowledges the message, the conversation is reloaded after the
// configured delay to pick up the assistant reply; the typing flag is
// cleared when that reload finishes, whatever its outcome. Use Wait to block
// until the reload has run.
func (s *Store) SendMessage(ctx context.Context, conversationID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return invalid("message is empty")
	}
	if conversationID == "" {
		return invalid("conversation id is required")
	}

	s.clearError()
	msg := models.Message{
		ID:             s.newID(),
		Type:           models.MessageTypeUser,
		Content:        content,
		Timestamp:      s.now().UTC(),
		ConversationID: conversationID,
	}
	s.update(func(st *Snapshot) {
		for i := range st.Conversations {
			c := &st.Conversations[i]
			if c.ID == conversationID {
				c.Messages = append(c.Messages, msg)
				c.LastMessage = msg.Timestamp
				break
			}
		}
		st.IsAidaTyping = true
	})

	resp, err := s.api.SendChatMessage(ctx, api.ChatRequest{Message: content, ConversationID: conversationID})
	if err != nil {
		s.update(func(st *Snapshot) { st.IsAidaTyping = false })
		return s.fail("send message", err)
	}

	id := conversationID
	if resp.ConversationID != "" {
		id = resp.ConversationID
	}
	s.scheduleReload(id)
	return nil
}

func (s *Store) scheduleReload(conversationID string) {
	s.pending.Add(1)
	time.AfterFunc(s.reloadDelay, func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.reconcileTimeout)
		defer cancel()

		s.reloadConversation(ctx, conversationID)
		s.update(func(st *Snapshot) { st.IsAidaTyping = false })
	})
}

// reloadConversation replaces one conversation with the backend's copy.
func (s *Store) reloadConversation(ctx context.Context, id string) {
	wire, err := s.api.GetConversation(ctx, id)
	if err != nil {
		s.fail("reload conversation", err)
		return
	}
	conv, err := transform.Conversation(*wire)
	if err != nil {
		s.fail("reload conversation", err)
		return
	}
	s.update(func(st *Snapshot) {
		for i := range st.Conversations {
			if st.Conversations[i].ID == conv.ID {
				st.Conversations[i] = conv
				return
			}
		}
		st.Conversations = append([]models.Conversation{conv}, st.Conversations...)
	})
}

// LoadMessages replaces the messages of one conversation with the backend's.
func (s *Store) LoadMessages(ctx context.Context, conversationID string) error {
	wire, err := s.api.ListMessages(ctx, conversationID)
	if err != nil {
		return s.fail("load messages", err)
	}
	msgs := make([]models.Message, 0, len(wire))
	for _, w := range wire {
		m, err := transform.Message(w)
		if err != nil {
			return s.fail("load messages", err)
		}
		msgs = append(msgs, m)
	}
	s.update(func(st *Snapshot) {
		for i := range st.Conversations {
			c := &st.Conversations[i]
			if c.ID == conversationID {
				c.Messages = msgs
				if n := len(msgs); n > 0 && msgs[n-1].Timestamp.After(c.LastMessage) {
					c.LastMessage = msgs[n-1].Timestamp
				}
				return
			}
		}
	})
	return nil
}

// LoadConversations replaces the conversation list with the backend's. A
// persisted active conversation that no longer exists is cleared.
func (s *Store) LoadConversations(ctx context.Context) {
	wire, err := s.api.ListConversations(ctx)
	if err != nil {
		s.fail("load conversations", err)
		return
	}
	convs, err := transform.Conversations(wire)
	if err != nil {
		s.fail("load conversations", err)
		return
	}

	cleared := false
	s.update(func(st *Snapshot) {
		st.Conversations = convs
		if st.ActiveConversation == "" {
			return
		}
		for _, c := range convs {
			if c.ID == st.ActiveConversation {
				return
			}
		}
		st.ActiveConversation = ""
		cleared = true
	})
	if cleared {
		s.save(ctx)
	}
}

// SetActiveConversation selects the conversation shown in chat. An empty id
// clears the selection.
func (s *Store) SetActiveConversation(ctx context.Context, id string) {
	s.update(func(st *Snapshot) { st.ActiveConversation = id })
	s.save(ctx)
}

// DeleteConversation deletes a conversation. The active selection is cleared
// only when it pointed at the deleted conversation.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.clearError()
	if err := s.api.DeleteConversation(ctx, id); err != nil {
		return s.fail("delete conversation", err)
	}
	s.update(func(st *Snapshot) {
		kept := st.Conversations[:0:0]
		for _, c := range st.Conversations {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		st.Conversations = kept
		if st.ActiveConversation == id {
			st.ActiveConversation = ""
		}
	})
	s.save(ctx)
	return nil
}

// GenerateFlashcards asks the assistant for question/answer pairs about content.
func (s *Store) GenerateFlashcards(ctx context.Context, content string, subject *string) ([]models.Flashcard, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("content is required")
	}
	s.clearError()
	cards, err := s.api.GenerateFlashcards(ctx, api.FlashcardRequest{Content: content, Subject: subject})
	if err != nil {
		return nil, s.fail("generate flashcards", err)
	}
	return transform.Flashcards(cards), nil
}
