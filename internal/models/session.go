// Package models defines data structures for the interview recorder.
package models

import (
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Session lifecycle states.
const (
	SessionPending  = "pending"  // created by the interviewer, not yet joined
	SessionActive   = "active"   // interviewee verified and recording
	SessionComplete = "complete" // finished, metadata locked
)

// Session is one interview session, keyed by its access token.
type Session struct {
	ID              surrealmodels.RecordID `json:"id"`
	Token           string                 `json:"token"`
	IntervieweeName string                 `json:"interviewee_name"`
	InterviewerID   string                 `json:"interviewer_id"`
	Status          string                 `json:"status"`
	FolderName      string                 `json:"folder_name,omitempty"`
	SessionID       string                 `json:"session_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	QuestionsAnswered int      `json:"questions_answered"`
	QuestionsSelected []string `json:"questions_selected,omitempty"`

	// Answers holds per-question analysis outcomes, keyed by the 0-based
	// question index rendered as a string (SurrealDB object keys).
	Answers map[string]AnswerResult `json:"answers,omitempty"`
}

// RecordIDString returns the session record's ID as a string. The session
// table uses random string IDs, so any other underlying type is a bug.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("session record id is %T, want string", id.ID)
	}
	return s, nil
}

// Answer analysis states as shown to the dashboard.
const (
	AnswerStatusDone  = "done"
	AnswerStatusError = "error"
)

// AnswerResult is the persisted analysis outcome for one question.
type AnswerResult struct {
	Status       string `json:"status"`
	Transcript   string `json:"transcript,omitempty"`
	MatchScore   int    `json:"match_score"`
	Feedback     string `json:"feedback,omitempty"`
	Emotion      string `json:"emotion,omitempty"`
	EmotionScore int    `json:"emotion_score"`
	PaceWPM      int    `json:"pace_wpm"`
	PaceLabel    string `json:"pace_label,omitempty"`
	Error        string `json:"error,omitempty"`
}
