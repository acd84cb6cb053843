package llm

import (
	"context"
	"strings"

	"github.com/joescharf/alden/internal/models"
)

// Fallback answers without a model, using keyword-matched canned replies.
type Fallback struct{}

var _ Responder = Fallback{}

type cannedReply struct {
	keywords []string
	text     string
}

// cannedReplies are checked in order; the first match wins.
var cannedReplies = []cannedReply{
	{
		keywords: []string{"math", "calculus", "algebra", "geometry"},
		text:     "I'd be happy to help with math! Can you share the specific problem or concept you're working on? I can break it down step by step and create practice problems for you.",
	},
	{
		keywords: []string{"physics", "chemistry", "biology", "science"},
		text:     "Science can be challenging but rewarding! What topic are you studying? I can explain concepts, provide examples, and help you understand the underlying principles.",
	},
	{
		keywords: []string{"study", "learn", "review"},
		text:     "Great question about studying! Here are some tips:\n\n• Break complex topics into smaller chunks\n• Use active recall to test yourself\n• Practice spaced repetition\n• Connect new concepts to what you already know\n\nWhat subject are you focusing on?",
	},
	{
		keywords: []string{"exam", "test", "quiz"},
		text:     "Preparing for an exam? Here's how I can help:\n\n• Create practice questions from your notes\n• Generate flashcards for key concepts\n• Build a study schedule\n• Explain difficult topics\n\nWould you like to upload your study materials so I can create personalized practice questions?",
	},
	{
		keywords: []string{"flashcard", "practice", "question"},
		text:     "I can create flashcards and practice questions based on your study materials! Just upload your notes, textbook chapters, or lecture slides, and I'll generate:\n\n• Key term flashcards\n• Multiple choice questions\n• Short answer prompts\n• Concept review questions\n\nWhat material would you like me to work with?",
	},
	{
		keywords: []string{"help", "stuck", "confused", "understand"},
		text:     "I'm here to help you understand! Let me know:\n\n• What specific concept you're struggling with\n• What you've tried so far\n• What part is most confusing\n\nI'll break it down into simpler steps and provide examples to make it clearer.",
	},
}

const defaultReply = "I'm here to help with your studies! I can:\n\n• Explain complex concepts in simple terms\n• Create study materials like flashcards and quizzes\n• Help you organize information and create outlines\n• Answer questions about any subject\n• Provide study strategies\n\nWhat would you like to work on today?"

// Reply returns the canned reply whose keywords match the message.
func (Fallback) Reply(_ context.Context, req ReplyRequest) (string, error) {
	msg := strings.ToLower(req.Message)
	for _, c := range cannedReplies {
		for _, kw := range c.keywords {
			if strings.Contains(msg, kw) {
				return c.text, nil
			}
		}
	}
	return defaultReply, nil
}

// Flashcards returns a fixed set of study-skills flashcards.
func (Fallback) Flashcards(context.Context, string, string) ([]models.Flashcard, error) {
	return DefaultFlashcards(), nil
}

// DefaultFlashcards returns the flashcards used when none can be generated.
func DefaultFlashcards() []models.Flashcard {
	return []models.Flashcard{
		{
			Question: "What is the best way to study effectively?",
			Answer:   "Use active recall, spaced repetition, and break content into smaller chunks.",
		},
		{
			Question: "How long should study sessions be?",
			Answer:   "25-50 minutes with 5-15 minute breaks (Pomodoro technique) or longer for deep work.",
		},
		{
			Question: "What is active recall?",
			Answer:   "Testing yourself on material without looking at notes to strengthen memory.",
		},
	}
}
