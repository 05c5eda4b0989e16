// Package analysis provides the AI analysis collaborator: one call per
// answer video that returns transcript, match score, feedback, emotion and
// speaking pace.
package analysis

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransient marks an analysis failure the caller may retry. The queue
// treats every analysis failure as transient; the marker exists so the
// retry decision is a function of the attempt count and error kind rather
// than provider-specific exception matching.
var ErrTransient = errors.New("transient analysis error")

// IsTransient reports whether err carries the transient marker.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// transientf wraps an error with the transient marker.
func transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}

// Request identifies one answer video to analyze.
type Request struct {
	VideoPath    string
	QuestionText string
	// DurationSeconds is the recorded answer length, 0 when unknown.
	// Used for pace calculation; when 0 the duration is estimated from the
	// transcript length at 140 words per minute.
	DurationSeconds int
}

// Result is the structured outcome of one unified analysis call.
type Result struct {
	Transcript      string `json:"transcript"`
	MatchScore      int    `json:"match_score"`
	Feedback        string `json:"feedback"`
	Emotion         string `json:"emotion"`
	EmotionScore    int    `json:"emotion_score"`
	PaceWPM         int    `json:"pace_wpm"`
	PaceLabel       string `json:"pace_label"`
	DurationSeconds int    `json:"duration_seconds"`
	RawResponse     string `json:"raw_response,omitempty"`
}

// Analyzer runs the unified analysis for one answer video. Implementations
// may block for the full upload + inference duration.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a plain function to the Analyzer interface.
type Func func(ctx context.Context, req Request) (*Result, error)

// Analyze implements Analyzer.
func (f Func) Analyze(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
