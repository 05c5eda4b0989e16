package storage

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tdnguyen/interview-recorder-go/internal/analysis"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "John Doe", "john_doe"},
		{"vietnamese diacritics", "Nguyễn Văn Hạnh", "nguyen_van_hanh"},
		{"d with stroke", "Đặng Đình Đô", "dang_dinh_do"},
		{"extra whitespace", "  Anna  Smith ", "anna__smith"},
		{"punctuation dropped", "O'Brien-Smith!", "obriensmith"},
		{"digits kept", "user 42", "user_42"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestFolderName(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2025, 3, 7, 2, 30, 0, 0, time.UTC) // 09:30 in Bangkok
	got := s.FolderName("Nguyễn Văn A", at)

	if !strings.HasSuffix(got, "_nguyen_van_a") {
		t.Errorf("FolderName() = %q, want sanitized name suffix", got)
	}
	if !strings.HasPrefix(got, "07_03_2025_") {
		t.Errorf("FolderName() = %q, want date prefix 07_03_2025_", got)
	}
}

func TestVideoFileName(t *testing.T) {
	if got := VideoFileName(0); got != "Q1.webm" {
		t.Errorf("VideoFileName(0) = %q, want Q1.webm", got)
	}
	if got := VideoFileName(4); got != "Q5.webm" {
		t.Errorf("VideoFileName(4) = %q, want Q5.webm", got)
	}
}

func TestCreateSessionFolderAndMetaRoundTrip(t *testing.T) {
	s := newTestStore(t)

	meta := &Meta{
		SessionID:  "abc",
		UserName:   "Test User",
		Token:      "TOK12345",
		FolderName: "01_01_2025_10_00_test_user",
		Status:     "active",
	}
	if err := s.CreateSessionFolder(meta.FolderName, meta); err != nil {
		t.Fatalf("CreateSessionFolder() error = %v", err)
	}
	if !s.FolderExists(meta.FolderName) {
		t.Fatal("folder should exist after creation")
	}

	loaded, err := s.LoadMeta(meta.FolderName)
	if err != nil {
		t.Fatalf("LoadMeta() error = %v", err)
	}
	if loaded.Token != "TOK12345" {
		t.Errorf("token = %q, want TOK12345", loaded.Token)
	}
	if loaded.ReceivedQuestions == nil {
		t.Error("receivedQuestions should be initialized")
	}
}

func TestSaveVideo(t *testing.T) {
	s := newTestStore(t)
	folder := "01_01_2025_10_00_test_user"
	if err := s.CreateSessionFolder(folder, &Meta{FolderName: folder}); err != nil {
		t.Fatal(err)
	}

	n, err := s.SaveVideo(folder, 0, strings.NewReader("fake webm bytes"))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	if n != int64(len("fake webm bytes")) {
		t.Errorf("bytes written = %d", n)
	}
	if s.VideoPath(folder, 0) != s.FolderPath(folder)+"/Q1.webm" {
		t.Errorf("VideoPath() = %q", s.VideoPath(folder, 0))
	}
}

func TestUpdateMetaTracksTotalSize(t *testing.T) {
	s := newTestStore(t)
	folder := "f"
	if err := s.CreateSessionFolder(folder, &Meta{FolderName: folder}); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateMeta(folder, func(m *Meta) {
		m.ReceivedQuestions["0"] = &QuestionMeta{Filename: "Q1.webm", SizeMB: 1.5, Status: QuestionUploaded}
		m.ReceivedQuestions["1"] = &QuestionMeta{Filename: "Q2.webm", SizeMB: 2.25, Status: QuestionUploaded}
	})
	if err != nil {
		t.Fatalf("UpdateMeta() error = %v", err)
	}

	meta, err := s.LoadMeta(folder)
	if err != nil {
		t.Fatal(err)
	}
	if meta.VideoSizeTotalMB != 3.75 {
		t.Errorf("videoSizeTotalMB = %v, want 3.75", meta.VideoSizeTotalMB)
	}
}

func TestUpdateMetaStartsFreshWhenMissing(t *testing.T) {
	s := newTestStore(t)
	folder := "no_meta_yet"
	if err := s.CreateSessionFolder(folder, &Meta{FolderName: folder}); err != nil {
		t.Fatal(err)
	}
	// Simulate a corrupt meta.json.
	if err := s.SaveMeta(folder, &Meta{}); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateMeta("unknown_folder_with_no_file", func(m *Meta) {
		m.ReceivedQuestions["0"] = &QuestionMeta{Filename: "Q1.webm", Status: QuestionUploaded}
	})
	// The folder itself is missing so the final write fails; the point is
	// that the callback ran against a fresh Meta without panicking.
	if err == nil {
		t.Log("write unexpectedly succeeded; acceptable if folder was created lazily")
	}
}

func TestQuestionDuration(t *testing.T) {
	s := newTestStore(t)
	folder := "f"
	if err := s.CreateSessionFolder(folder, &Meta{FolderName: folder}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateMeta(folder, func(m *Meta) {
		m.ReceivedQuestions["2"] = &QuestionMeta{DurationSeconds: 42}
	}); err != nil {
		t.Fatal(err)
	}

	if got := s.QuestionDuration(folder, 2); got != 42 {
		t.Errorf("QuestionDuration() = %d, want 42", got)
	}
	if got := s.QuestionDuration(folder, 9); got != 0 {
		t.Errorf("QuestionDuration() for unknown question = %d, want 0", got)
	}
}

func TestWriteTranscript(t *testing.T) {
	s := newTestStore(t)
	folder := "f"
	if err := s.CreateSessionFolder(folder, &Meta{FolderName: folder}); err != nil {
		t.Fatal(err)
	}

	name, err := s.WriteTranscript(folder, 1, "Why Go?", &analysis.Result{
		Transcript: "because of goroutines",
		MatchScore: 88,
		Feedback:   "Solid answer.",
	})
	if err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}
	if name != "Q2_transcript.txt" {
		t.Errorf("transcript name = %q, want Q2_transcript.txt", name)
	}
}
