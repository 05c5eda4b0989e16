// Package storage manages the on-disk session folders: answer videos,
// per-session meta.json, and generated transcript files.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tdnguyen/interview-recorder-go/internal/analysis"
)

// MetaFileName is the per-session metadata file.
const MetaFileName = "meta.json"

// folderTimezone is used for the timestamp in folder names.
const folderTimezone = "Asia/Bangkok"

// Store manages session folders under a base uploads directory.
type Store struct {
	baseDir string
	tz      *time.Location
	logger  *slog.Logger

	// metaMu serializes meta.json read-modify-write cycles; uploads and the
	// worker's result callback both touch the same file.
	metaMu sync.Mutex
}

// New creates a store rooted at baseDir, creating it if needed.
func New(baseDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	tz, err := time.LoadLocation(folderTimezone)
	if err != nil {
		// Fall back to UTC on systems without tzdata.
		logger.Warn("timezone unavailable, folder names use UTC", "tz", folderTimezone, "error", err)
		tz = time.UTC
	}

	return &Store{baseDir: baseDir, tz: tz, logger: logger}, nil
}

// BaseDir returns the uploads root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// FolderName builds the session folder name: DD_MM_YYYY_HH_mm_<name>.
func (s *Store) FolderName(userName string, now time.Time) string {
	return now.In(s.tz).Format("02_01_2006_15_04") + "_" + SanitizeName(userName)
}

// FolderPath returns the absolute path of a session folder.
func (s *Store) FolderPath(folder string) string {
	return filepath.Join(s.baseDir, folder)
}

// FolderExists reports whether a session folder has been created.
func (s *Store) FolderExists(folder string) bool {
	info, err := os.Stat(s.FolderPath(folder))
	return err == nil && info.IsDir()
}

// VideoFileName returns the per-question video name, Q<n>.webm (1-based).
func VideoFileName(questionIndex int) string {
	return fmt.Sprintf("Q%d.webm", questionIndex+1)
}

// VideoPath returns the absolute path of one question's video file.
func (s *Store) VideoPath(folder string, questionIndex int) string {
	return filepath.Join(s.FolderPath(folder), VideoFileName(questionIndex))
}

// CreateSessionFolder creates the folder and writes the initial meta.json.
func (s *Store) CreateSessionFolder(folder string, meta *Meta) error {
	if err := os.MkdirAll(s.FolderPath(folder), 0o755); err != nil {
		return fmt.Errorf("create session folder: %w", err)
	}
	if meta.ReceivedQuestions == nil {
		meta.ReceivedQuestions = make(map[string]*QuestionMeta)
	}
	if meta.QuestionsSelected == nil {
		meta.QuestionsSelected = []string{}
	}
	meta.TimeZone = s.tz.String()
	return s.SaveMeta(folder, meta)
}

// SaveVideo writes one question's video file and returns its size in bytes.
func (s *Store) SaveVideo(folder string, questionIndex int, r io.Reader) (int64, error) {
	path := s.VideoPath(folder, questionIndex)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create video file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write video file: %w", err)
	}
	s.logger.Info("video saved", "path", path, "bytes", n)
	return n, nil
}

// LoadMeta reads a session's meta.json.
func (s *Store) LoadMeta(folder string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(s.FolderPath(folder), MetaFileName))
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	if meta.ReceivedQuestions == nil {
		meta.ReceivedQuestions = make(map[string]*QuestionMeta)
	}
	return &meta, nil
}

// SaveMeta writes a session's meta.json with indentation; the file is also
// served raw to the dashboard.
func (s *Store) SaveMeta(folder string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.FolderPath(folder), MetaFileName), data, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// UpdateMeta applies fn to a session's meta.json under the store lock.
// A missing file starts from an empty Meta so uploads are never blocked by
// a corrupt or absent metadata file.
func (s *Store) UpdateMeta(folder string, fn func(*Meta)) error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	meta, err := s.LoadMeta(folder)
	if err != nil {
		s.logger.Warn("meta.json unreadable, starting fresh", "folder", folder, "error", err)
		meta = &Meta{ReceivedQuestions: make(map[string]*QuestionMeta)}
	}

	fn(meta)
	meta.VideoSizeTotalMB = meta.TotalSizeMB()
	return s.SaveMeta(folder, meta)
}

// QuestionDuration returns the recorded duration for a question, 0 when
// unknown. Failures are logged, not returned: duration only tunes the pace
// estimate.
func (s *Store) QuestionDuration(folder string, questionIndex int) int {
	meta, err := s.LoadMeta(folder)
	if err != nil {
		s.logger.Warn("could not read duration", "folder", folder, "error", err)
		return 0
	}
	if q, ok := meta.ReceivedQuestions[fmt.Sprintf("%d", questionIndex)]; ok {
		return q.DurationSeconds
	}
	return 0
}

// WriteTranscript writes the Q<n>_transcript.txt summary file for a
// completed analysis and returns its file name.
func (s *Store) WriteTranscript(folder string, questionIndex int, questionText string, result *analysis.Result) (string, error) {
	name := fmt.Sprintf("Q%d_transcript.txt", questionIndex+1)
	content := fmt.Sprintf(`--- Q%d ---
Question: %s
Match Score: %d/100
Feedback: %s
--- Transcript ---
%s
`, questionIndex+1, questionText, result.MatchScore, result.Feedback, result.Transcript)

	path := filepath.Join(s.FolderPath(folder), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return name, nil
}
