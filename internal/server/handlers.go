package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tdnguyen/interview-recorder-go/internal/db"
	"github.com/tdnguyen/interview-recorder-go/internal/metrics"
	"github.com/tdnguyen/interview-recorder-go/internal/models"
	"github.com/tdnguyen/interview-recorder-go/internal/queue"
	"github.com/tdnguyen/interview-recorder-go/internal/storage"
)

type tokenRequest struct {
	Token    string `json:"token" binding:"required"`
	UserName string `json:"user_name" binding:"required"`
}

type retryRequest struct {
	Token         string `json:"token" binding:"required"`
	Folder        string `json:"folder" binding:"required"`
	QuestionIndex *int   `json:"questionIndex" binding:"required"`
	QuestionText  string `json:"questionText"`
}

type createSessionRequest struct {
	IntervieweeName string `json:"interviewee_name" binding:"required"`
	InterviewerID   string `json:"interviewer_id" binding:"required"`
}

func errorJSON(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"ok": false, "detail": msg})
}

// validatePendingSession checks token + name against a pending session.
// It writes the error response itself and returns false on failure.
func (s *Server) validatePendingSession(c *gin.Context, token, userName string) bool {
	session, err := s.db.GetSession(c.Request.Context(), token)
	if errors.Is(err, db.ErrNotFound) {
		errorJSON(c, http.StatusUnauthorized, "Invalid token.")
		return false
	}
	if err != nil {
		s.logger.Error("session lookup failed", "token", token, "error", err)
		errorJSON(c, http.StatusServiceUnavailable, "Database connection error.")
		return false
	}

	if session.Status != "pending" {
		errorJSON(c, http.StatusForbidden, "Session is already completed or inactive.")
		return false
	}
	if !strings.EqualFold(session.IntervieweeName, userName) {
		errorJSON(c, http.StatusUnauthorized, "Token valid, but name mismatch. Check spelling.")
		return false
	}
	return true
}

func (s *Server) handleVerifyToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing token or user_name.")
		return
	}

	if !s.validatePendingSession(c, strings.TrimSpace(req.Token), strings.TrimSpace(req.UserName)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSessionStart(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing token or user_name.")
		return
	}
	token := strings.TrimSpace(req.Token)
	userName := strings.TrimSpace(req.UserName)

	if !s.validatePendingSession(c, token, userName) {
		return
	}

	now := time.Now()
	folder := s.store.FolderName(userName, now)
	sessionID := uuid.New().String()

	if err := s.db.ActivateSession(c.Request.Context(), token, folder, sessionID, now); err != nil {
		s.logger.Error("activate session failed", "token", token, "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to finalize session start.")
		return
	}

	meta := &storage.Meta{
		SessionID:  sessionID,
		UserName:   userName,
		Token:      token,
		FolderName: folder,
		UploadedAt: now.Format(time.RFC3339),
		Status:     "active",
	}
	if err := s.store.CreateSessionFolder(folder, meta); err != nil {
		// Session is already active in the database; disk errors are logged
		// and surfaced on the first upload instead.
		s.logger.Error("session folder creation failed", "folder", folder, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "folder": folder, "session_id": sessionID})
}

func (s *Server) handleUploadOne(c *gin.Context) {
	start := time.Now()

	token := strings.TrimSpace(c.PostForm("token"))
	folder := c.PostForm("folder")
	questionIndex, err := intForm(c, "questionIndex")
	if token == "" || folder == "" || err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing required form fields (token, folder, index).")
		return
	}

	if !s.store.FolderExists(folder) {
		errorJSON(c, http.StatusNotFound, "Session folder not found. Start session first.")
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing video file.")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType != "video/webm" && contentType != "video/ogg" {
		errorJSON(c, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported file type: %s. Only video/webm accepted.", contentType))
		return
	}

	src, err := file.Open()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to read uploaded video.")
		return
	}
	defer src.Close()

	size, err := s.store.SaveVideo(folder, questionIndex, src)
	if err != nil {
		s.logger.Error("video save failed", "folder", folder, "question", questionIndex, "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to save video file on server.")
		return
	}

	questionText := s.resolveQuestionText(c, token, questionIndex)
	durationSeconds, _ := intForm(c, "durationSeconds")

	if err := s.store.UpdateMeta(folder, func(m *storage.Meta) {
		m.ReceivedQuestions[fmt.Sprintf("%d", questionIndex)] = &storage.QuestionMeta{
			Filename:        storage.VideoFileName(questionIndex),
			Status:          storage.QuestionUploaded,
			TranscriptText:  "Processing...",
			SizeMB:          roundMB(size),
			UploadedAt:      time.Now().UTC().Format(time.RFC3339),
			DurationSeconds: durationSeconds,
		}
	}); err != nil {
		s.logger.Warn("meta update failed after upload", "folder", folder, "error", err)
	}

	jobID := s.queue.Add(queue.AddRequest{
		Token:         token,
		Folder:        folder,
		QuestionIndex: questionIndex,
		QuestionText:  questionText,
		VideoPath:     s.store.VideoPath(folder, questionIndex),
	})

	s.metrics.Increment(metrics.CtrUpload)
	s.metrics.RecordTiming(metrics.OpUpload, time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"savedAs": storage.VideoFileName(questionIndex),
		"job_id":  jobID,
		"message": "Upload successful. AI analysis queued.",
	})
}

// resolveQuestionText prefers client-provided text, then the question list
// stored on the session, then the local question bank.
func (s *Server) resolveQuestionText(c *gin.Context, token string, questionIndex int) string {
	if text := strings.TrimSpace(c.PostForm("questionText")); text != "" {
		return text
	}

	session, err := s.db.GetSession(c.Request.Context(), token)
	if err == nil && questionIndex >= 0 && questionIndex < len(session.QuestionsSelected) {
		return session.QuestionsSelected[questionIndex]
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.logger.Warn("question lookup failed", "token", token, "error", err)
	}
	return s.bank.Text(questionIndex)
}

func (s *Server) handleRetryProcessing(c *gin.Context) {
	var req retryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing token, folder or questionIndex.")
		return
	}
	questionIndex := *req.QuestionIndex

	videoPath := s.store.VideoPath(req.Folder, questionIndex)
	if _, err := os.Stat(videoPath); err != nil {
		errorJSON(c, http.StatusNotFound, "Original video file not found. Please re-upload.")
		return
	}

	if err := s.store.UpdateMeta(req.Folder, func(m *storage.Meta) {
		q, ok := m.ReceivedQuestions[fmt.Sprintf("%d", questionIndex)]
		if !ok {
			return
		}
		q.Status = storage.QuestionRetrying
		q.TranscriptText = "Retrying AI analysis..."
		q.AIDone = false
		q.AIMatchScore = 0
		q.AIFeedback = "Processing..."
		q.DebugError = ""
	}); err != nil {
		s.logger.Warn("meta update failed for retry", "folder", req.Folder, "error", err)
	}

	questionText := strings.TrimSpace(req.QuestionText)
	if questionText == "" {
		questionText = s.bank.Text(questionIndex)
	}

	jobID := s.queue.Add(queue.AddRequest{
		Token:         req.Token,
		Folder:        req.Folder,
		QuestionIndex: questionIndex,
		QuestionText:  questionText,
		VideoPath:     videoPath,
		ManualRetry:   true,
	})
	s.metrics.Increment(metrics.CtrManualRetry)

	c.JSON(http.StatusOK, gin.H{"ok": true, "job_id": jobID, "message": "Manual retry initiated."})
}

func (s *Server) handleSessionFinish(c *gin.Context) {
	token := strings.TrimSpace(c.PostForm("token"))
	folder := c.PostForm("folder")
	questionsCount, err := intForm(c, "questionsCount")
	if token == "" || folder == "" || err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing required form fields (token, folder, questionsCount).")
		return
	}

	if err := s.db.FinishSession(c.Request.Context(), token, questionsCount, time.Now()); err != nil {
		s.logger.Error("finish session failed", "token", token, "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to finalize session.")
		return
	}

	if err := s.store.UpdateMeta(folder, func(m *storage.Meta) {
		m.Status = "complete"
	}); err != nil {
		s.logger.Warn("meta update failed on finish", "folder", folder, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing interviewee_name or interviewer_id.")
		return
	}

	token := strings.ToUpper(uuid.New().String()[:8])
	created, err := s.db.CreateSession(c.Request.Context(), token, strings.TrimSpace(req.IntervieweeName), req.InterviewerID)
	if err != nil {
		s.logger.Error("create session failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to create new interview session.")
		return
	}
	if recordID, idErr := models.RecordIDString(created.ID); idErr == nil {
		s.logger.Info("session created", "record", recordID, "interviewer", req.InterviewerID)
	}

	sessionURL := fmt.Sprintf("http://localhost:3000/interviewee?token=%s&name=%s",
		token, strings.ReplaceAll(req.IntervieweeName, " ", "%20"))

	c.JSON(http.StatusCreated, gin.H{"ok": true, "token": token, "session_url": sessionURL})
}

func (s *Server) handleJobStatus(c *gin.Context) {
	view, err := s.queue.Status(c.Param("id"))
	if errors.Is(err, queue.ErrJobNotFound) {
		errorJSON(c, http.StatusNotFound, "Job not found.")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleQueueSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.queue.Snapshot())
}

func intForm(c *gin.Context, field string) (int, error) {
	val := c.PostForm(field)
	if val == "" {
		return 0, fmt.Errorf("missing form field %s", field)
	}
	var n int
	if _, err := fmt.Sscanf(val, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return n, nil
}

func roundMB(sizeBytes int64) float64 {
	mb := float64(sizeBytes) / (1024 * 1024)
	return float64(int(mb*100+0.5)) / 100
}
