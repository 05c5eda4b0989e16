package analysis

import (
	"errors"
	"strings"
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
		{"no fence with backticks inside", "{\"a\":\"``\"}", "{\"a\":\"``\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	raw := "```json\n" + `{"transcript": "a subset is a part of a larger set", "match_score": 82, "feedback": "Correct but shallow.", "emotion": "Calm", "emotion_score": 70}` + "\n```"

	result, err := parseResponse(raw, 10)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}

	if result.Transcript != "a subset is a part of a larger set" {
		t.Errorf("transcript = %q", result.Transcript)
	}
	if result.MatchScore != 82 {
		t.Errorf("match_score = %d, want 82", result.MatchScore)
	}
	if result.Emotion != "calm" {
		t.Errorf("emotion = %q, want lowercased %q", result.Emotion, "calm")
	}
	// 9 words over 10 seconds = 54 wpm.
	if result.PaceWPM != 54 {
		t.Errorf("pace_wpm = %d, want 54", result.PaceWPM)
	}
	if result.PaceLabel != "slow" {
		t.Errorf("pace_label = %q, want slow", result.PaceLabel)
	}
	if result.RawResponse != raw {
		t.Error("raw response not preserved")
	}
}

func TestParseResponseClampsScores(t *testing.T) {
	raw := `{"transcript": "hi", "match_score": 140, "feedback": "x", "emotion": "happy", "emotion_score": -5}`
	result, err := parseResponse(raw, 1)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if result.MatchScore != 100 {
		t.Errorf("match_score = %d, want clamped 100", result.MatchScore)
	}
	if result.EmotionScore != 0 {
		t.Errorf("emotion_score = %d, want clamped 0", result.EmotionScore)
	}
}

func TestParseResponseDefaults(t *testing.T) {
	raw := `{"transcript": "", "match_score": 0}`
	result, err := parseResponse(raw, 0)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if result.Emotion != "neutral" {
		t.Errorf("emotion = %q, want neutral default", result.Emotion)
	}
	if result.Feedback != "No feedback." {
		t.Errorf("feedback = %q, want default", result.Feedback)
	}
	if result.PaceWPM != 0 {
		t.Errorf("pace_wpm = %d, want 0 for empty transcript", result.PaceWPM)
	}
	if result.DurationSeconds != 1 {
		t.Errorf("duration = %d, want minimum 1", result.DurationSeconds)
	}
}

func TestParseResponseEstimatesDuration(t *testing.T) {
	// 14 words, no duration: estimated at 140 wpm -> 6 seconds, normal pace.
	words := strings.Repeat("word ", 14)
	raw := `{"transcript": "` + strings.TrimSpace(words) + `", "match_score": 50, "feedback": "x", "emotion": "neutral", "emotion_score": 50}`

	result, err := parseResponse(raw, 0)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if result.DurationSeconds != 6 {
		t.Errorf("duration = %d, want estimated 6", result.DurationSeconds)
	}
	if result.PaceLabel != "normal" {
		t.Errorf("pace_label = %q, want normal", result.PaceLabel)
	}
}

func TestParseResponseInvalidJSONIsTransient(t *testing.T) {
	_, err := parseResponse("I could not process the video, sorry!", 5)
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if !IsTransient(err) {
		t.Errorf("error %v should carry the transient marker", err)
	}
}

func TestPaceLabel(t *testing.T) {
	tests := []struct {
		wpm  int
		want string
	}{
		{0, "slow"},
		{89, "slow"},
		{90, "normal"},
		{150, "normal"},
		{151, "fast"},
	}
	for _, tt := range tests {
		if got := paceLabel(tt.wpm); got != tt.want {
			t.Errorf("paceLabel(%d) = %q, want %q", tt.wpm, got, tt.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(transientf("boom")) {
		t.Error("transientf error should match ErrTransient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error should not match ErrTransient")
	}
	if IsTransient(nil) {
		t.Error("nil should not match ErrTransient")
	}
}
