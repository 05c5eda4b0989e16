package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// DefaultGeminiModel is the multimodal model used for unified analysis.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiAnalyzer implements Analyzer against the Gemini API. The whole
// analysis is a single multimodal call: video bytes plus the grading prompt
// in, a JSON document out.
type GeminiAnalyzer struct {
	llm    llms.Model
	model  string
	logger *slog.Logger
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGemini creates a Gemini-backed analyzer. model "" selects
// DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini analyzer requires an API key")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiAnalyzer{llm: llm, model: model, logger: logger}, nil
}

// Model returns the configured model name.
func (g *GeminiAnalyzer) Model() string {
	return g.model
}

// Analyze uploads the answer video and runs the unified prompt. Every
// failure is wrapped with ErrTransient; the queue owns the retry policy.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	g.logger.Info("starting unified analysis", "video", filepath.Base(req.VideoPath), "model", g.model)

	data, err := os.ReadFile(req.VideoPath)
	if err != nil {
		return nil, transientf("read video: %v", err)
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("video/webm", data),
				llms.TextPart(buildPrompt(req.QuestionText)),
			},
		},
	}

	resp, err := g.llm.GenerateContent(ctx, content)
	if err != nil {
		return nil, transientf("generate: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, transientf("no response choices")
	}

	raw := resp.Choices[0].Content
	result, err := parseResponse(raw, req.DurationSeconds)
	if err != nil {
		g.logger.Error("unparseable model response", "response", truncate(raw, 400))
		return nil, err
	}

	g.logger.Info("analysis complete",
		"wpm", result.PaceWPM,
		"emotion", result.Emotion,
		"score", result.MatchScore,
	)

	return result, nil
}

// buildPrompt renders the unified transcription + grading prompt. The
// transcription rules are deliberately strict: short or silent answers must
// not be padded out into full sentences by the model.
func buildPrompt(questionText string) string {
	return fmt.Sprintf(`CRITICAL: You are a TRANSCRIBER ONLY. Transcribe the audio word-for-word.
You MUST NEVER hallucinate, invent, guess, or generate text that is NOT in the audio.

### STEP 0: AUDIO CONTENT DETECTION (DO THIS FIRST)
Is there clear human speech in the audio (not just noise, music, or silence)?
If NO clear speech detected, return EXACTLY:
{"transcript": "", "match_score": 0, "feedback": "No audible speech.", "emotion": "silent", "emotion_score": 0}
STOP. Do not continue to Step 1.

### STEP 1: TRANSCRIBE ONLY WHAT YOU HEAR
- Write ONLY the words you hear. Never complete unfinished thoughts.
- If the audio is unclear, write only the parts you can clearly understand.
- Remove filler words ("uh", "um").
- Preserve Vietnamese diacritics and proper nouns exactly as spoken.
- Do NOT generate full sentences from keywords or explain what the
  candidate meant.

### STEP 2: MATCH SCORE (0-100)
How well the answer addresses: "%s"
- Score STRICTLY. 90-100: exceptional, deep, structured, specific examples.
  75-89: correct but shallow or generic. Below 75: irrelevant, incorrect, or
  extremely short.

### STEP 3: FEEDBACK (2-3 sentences)
Written for the HIRING MANAGER, not the candidate. Never use "To improve"
or "You should". Evaluate depth of thought, clarity and structure, and
completeness.

### STEP 4: EMOTION
One label: neutral, happy, stressed, confident, nervous, angry, calm,
thoughtful, rushed, uncertain

### JSON RESPONSE (REQUIRED):
{"transcript": "<words only>", "match_score": <0-100>, "feedback": "<2-3 sentences>", "emotion": "<label>", "emotion_score": <0-100>}`, questionText)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
