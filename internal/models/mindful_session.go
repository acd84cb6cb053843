package models

import "time"

// MindfulCategory groups mindfulness exercises by when they are used.
type MindfulCategory string

const (
	MindfulQuickRelief MindfulCategory = "quick_relief"
	MindfulPreStudy    MindfulCategory = "pre_study"
	MindfulPostStudy   MindfulCategory = "post_study"
	MindfulExamSupport MindfulCategory = "exam_support"
)

// MindfulCategories lists every mindfulness category.
var MindfulCategories = []MindfulCategory{MindfulQuickRelief, MindfulPreStudy, MindfulPostStudy, MindfulExamSupport}

// Valid reports whether c is a known category.
func (c MindfulCategory) Valid() bool {
	for _, v := range MindfulCategories {
		if c == v {
			return true
		}
	}
	return false
}

// MindfulSession is a guided mindfulness exercise.
type MindfulSession struct {
	ID          string
	Title       string
	Category    MindfulCategory
	Duration    int // seconds
	AudioURL    string
	Description string
	Completed   bool
	CompletedAt *time.Time
	Rating      *int // 1-5

	// Catalog is true while the entry only exists in the prebuilt catalog
	// and has no server record yet.
	Catalog bool
}

// DefaultMindfulCatalog seeds the mindfulness list before the backend catalog
// has been fetched.
func DefaultMindfulCatalog() []MindfulSession {
	return []MindfulSession{
		{
			ID:          "focus-boost",
			Title:       "Focus Boost",
			Category:    MindfulPreStudy,
			Duration:    240,
			AudioURL:    "/audio/focus-boost.mp3",
			Description: "A 4-minute meditation to prepare your mind for focused study",
			Catalog:     true,
		},
		{
			ID:          "sos-breathing",
			Title:       "SOS Breathing",
			Category:    MindfulQuickRelief,
			Duration:    60,
			AudioURL:    "/audio/sos-breathing.mp3",
			Description: "Quick breathing exercise for immediate stress relief",
			Catalog:     true,
		},
		{
			ID:          "study-reflection",
			Title:       "Study Reflection",
			Category:    MindfulPostStudy,
			Duration:    420,
			AudioURL:    "/audio/study-reflection.mp3",
			Description: "Wind down and reflect on your study session",
			Catalog:     true,
		},
		{
			ID:          "pre-exam-calm",
			Title:       "Pre-Exam Calm",
			Category:    MindfulExamSupport,
			Duration:    600,
			AudioURL:    "/audio/pre-exam-calm.mp3",
			Description: "Calm your nerves before an important exam",
			Catalog:     true,
		},
	}
}
