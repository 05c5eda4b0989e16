package storage

// Per-question analysis states recorded in meta.json. The frontend polls
// these to decide between spinner, result, and retry button.
const (
	QuestionUploaded = "uploaded_processing_ai"
	QuestionRetrying = "retrying_processing_ai"
	QuestionDone     = "done"
	QuestionAIError  = "ai_error"
)

// Meta is the per-session metadata file written alongside the videos.
// Field names match the JSON the frontend already consumes.
type Meta struct {
	SessionID         string                   `json:"session_id"`
	UserName          string                   `json:"userName"`
	Token             string                   `json:"token"`
	FolderName        string                   `json:"folderName"`
	UploadedAt        string                   `json:"uploadedAt"`
	TimeZone          string                   `json:"timeZone"`
	Status            string                   `json:"status"`
	VideoSizeTotalMB  float64                  `json:"videoSizeTotalMB"`
	ReceivedQuestions map[string]*QuestionMeta `json:"receivedQuestions"`
	QuestionsSelected []string                 `json:"questionsSelected"`
}

// QuestionMeta is one answered question's entry in meta.json.
type QuestionMeta struct {
	Filename        string  `json:"filename"`
	Status          string  `json:"status"`
	TranscriptText  string  `json:"transcript_text"`
	TranscriptFile  string  `json:"transcriptFile,omitempty"`
	SizeMB          float64 `json:"sizeMB"`
	UploadedAt      string  `json:"uploadedAt"`
	DurationSeconds int     `json:"durationSeconds,omitempty"`

	AIDone       bool   `json:"ai_done"`
	AIMatchScore int    `json:"ai_match_score,omitempty"`
	AIFeedback   string `json:"ai_feedback,omitempty"`
	Emotion      string `json:"emotion,omitempty"`
	EmotionScore int    `json:"emotion_score,omitempty"`
	PaceWPM      int    `json:"pace_wpm,omitempty"`
	PaceLabel    string `json:"pace_label,omitempty"`
	DebugError   string `json:"debug_error,omitempty"`
}

// TotalSizeMB sums the per-question sizes.
func (m *Meta) TotalSizeMB() float64 {
	var total float64
	for _, q := range m.ReceivedQuestions {
		total += q.SizeMB
	}
	return total
}
