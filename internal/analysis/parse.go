package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Pace thresholds in words per minute.
const (
	paceSlowBelow  = 90
	paceFastAbove  = 150
	estimatedWPM   = 140 // assumed speaking rate when duration is unknown
	defaultEmotion = "neutral"
)

var (
	fenceOpen  = regexp.MustCompile("(?m)^```[a-z]*\n")
	fenceClose = regexp.MustCompile("(?m)\n```$")
)

// stripCodeFence removes a surrounding markdown code block, if any. Models
// frequently wrap the JSON response in ```json fences despite instructions.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpen.ReplaceAllString(cleaned, "")
		cleaned = fenceClose.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// rawResponse is the JSON shape the model is instructed to return.
type rawResponse struct {
	Transcript   string `json:"transcript"`
	MatchScore   int    `json:"match_score"`
	Feedback     string `json:"feedback"`
	Emotion      string `json:"emotion"`
	EmotionScore int    `json:"emotion_score"`
}

// parseResponse decodes the model output into a Result and derives the
// speaking pace. durationSeconds 0 means unknown.
func parseResponse(raw string, durationSeconds int) (*Result, error) {
	var decoded rawResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &decoded); err != nil {
		return nil, transientf("decode model response: %v", err)
	}

	result := &Result{
		Transcript:   strings.TrimSpace(decoded.Transcript),
		MatchScore:   clampScore(decoded.MatchScore),
		Feedback:     decoded.Feedback,
		Emotion:      strings.ToLower(decoded.Emotion),
		EmotionScore: clampScore(decoded.EmotionScore),
		RawResponse:  raw,
	}
	if result.Feedback == "" {
		result.Feedback = "No feedback."
	}
	if result.Emotion == "" {
		result.Emotion = defaultEmotion
	}

	wordCount := len(strings.Fields(result.Transcript))
	duration := durationSeconds
	if duration <= 0 {
		if wordCount > 0 {
			duration = int(float64(wordCount) / estimatedWPM * 60)
		}
		if duration < 1 {
			duration = 1
		}
	}

	result.DurationSeconds = duration
	result.PaceWPM = wordCount * 60 / duration
	result.PaceLabel = paceLabel(result.PaceWPM)

	return result, nil
}

func paceLabel(wpm int) string {
	switch {
	case wpm < paceSlowBelow:
		return "slow"
	case wpm <= paceFastAbove:
		return "normal"
	default:
		return "fast"
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
