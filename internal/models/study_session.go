package models

import "time"

// Technique is the study method chosen for a session.
type Technique string

const (
	TechniquePomodoro     Technique = "pomodoro"
	TechniqueDeepWork     Technique = "deep_work"
	TechniqueActiveRecall Technique = "active_recall"
)

// Techniques lists every supported study technique.
var Techniques = []Technique{TechniquePomodoro, TechniqueDeepWork, TechniqueActiveRecall}

// Valid reports whether t is a known technique.
func (t Technique) Valid() bool {
	for _, v := range Techniques {
		if t == v {
			return true
		}
	}
	return false
}

// StudySession is a timed block of focused study.
//
// Duration is the planned length in minutes until the session is completed,
// after which it holds the elapsed wall-clock minutes reported by the backend.
type StudySession struct {
	ID         string
	Subject    string
	Goal       string
	Technique  Technique
	Duration   int
	StartTime  time.Time
	EndTime    *time.Time
	Completed  bool
	FocusScore *int // 1-10
	Notes      *string
}
