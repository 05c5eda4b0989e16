package server

import (
	"context"
	"fmt"
	"time"

	"github.com/tdnguyen/interview-recorder-go/internal/analysis"
	"github.com/tdnguyen/interview-recorder-go/internal/metrics"
	"github.com/tdnguyen/interview-recorder-go/internal/models"
	"github.com/tdnguyen/interview-recorder-go/internal/queue"
	"github.com/tdnguyen/interview-recorder-go/internal/storage"
)

// persistTimeout bounds the database writes done from the worker callback.
const persistTimeout = 10 * time.Second

// ResultHandler returns the callback the worker invokes after each job
// outcome. All persistence happens here: meta.json, the transcript file,
// and the session document. The queue itself stays free of I/O. The job
// arrives as a copy, so nothing here races with later queue mutations.
func (s *Server) ResultHandler() queue.ResultFunc {
	return func(job queue.Job) {
		switch job.Status {
		case queue.StatusSuccess:
			s.persistSuccess(job)
		case queue.StatusRetryScheduled:
			s.metrics.Increment(metrics.CtrAutoRetry)
			s.markRetrying(job)
		case queue.StatusFailed:
			s.metrics.Increment(metrics.CtrAnalysisFailure)
			s.persistFailure(job)
		}

		if job.StartedAt != nil {
			s.metrics.RecordTiming(metrics.OpQueueWait, job.StartedAt.Sub(job.CreatedAt))
		}
		if job.StartedAt != nil && job.CompletedAt != nil {
			s.metrics.RecordTiming(metrics.OpAnalysis, job.CompletedAt.Sub(*job.StartedAt))
		}
	}
}

func (s *Server) persistSuccess(job queue.Job) {
	result, ok := job.Result.(*analysis.Result)
	if !ok {
		s.logger.Error("unexpected result type", "job_id", job.ID)
		return
	}
	s.metrics.Increment(metrics.CtrAnalysisSuccess)

	transcriptFile, err := s.store.WriteTranscript(job.Folder, job.QuestionIndex, job.QuestionText, result)
	if err != nil {
		s.logger.Error("transcript write failed", "job_id", job.ID, "error", err)
	}

	if err := s.store.UpdateMeta(job.Folder, func(m *storage.Meta) {
		q := questionMeta(m, job.QuestionIndex)
		q.Status = storage.QuestionDone
		q.AIDone = true
		q.TranscriptText = result.Transcript
		q.TranscriptFile = transcriptFile
		q.AIMatchScore = result.MatchScore
		q.AIFeedback = result.Feedback
		q.Emotion = result.Emotion
		q.EmotionScore = result.EmotionScore
		q.PaceWPM = result.PaceWPM
		q.PaceLabel = result.PaceLabel
		q.DebugError = ""
	}); err != nil {
		s.logger.Error("meta update failed", "job_id", job.ID, "error", err)
	}

	s.saveAnswer(job, models.AnswerResult{
		Status:       models.AnswerStatusDone,
		Transcript:   result.Transcript,
		MatchScore:   result.MatchScore,
		Feedback:     result.Feedback,
		Emotion:      result.Emotion,
		EmotionScore: result.EmotionScore,
		PaceWPM:      result.PaceWPM,
		PaceLabel:    result.PaceLabel,
	})

	s.logger.Info("analysis result persisted", "job_id", job.ID, "score", result.MatchScore)
}

// markRetrying only refreshes the visible status; the queue re-runs the
// job on its own once the delay expires.
func (s *Server) markRetrying(job queue.Job) {
	if err := s.store.UpdateMeta(job.Folder, func(m *storage.Meta) {
		q := questionMeta(m, job.QuestionIndex)
		q.Status = storage.QuestionRetrying
		q.TranscriptText = "Retrying AI analysis..."
		q.AIDone = false
	}); err != nil {
		s.logger.Warn("meta update failed", "job_id", job.ID, "error", err)
	}
}

func (s *Server) persistFailure(job queue.Job) {
	if err := s.store.UpdateMeta(job.Folder, func(m *storage.Meta) {
		q := questionMeta(m, job.QuestionIndex)
		q.Status = storage.QuestionAIError
		q.AIDone = false
		q.TranscriptText = "AI analysis failed."
		q.DebugError = job.ErrorMessage
	}); err != nil {
		s.logger.Error("meta update failed", "job_id", job.ID, "error", err)
	}

	s.saveAnswer(job, models.AnswerResult{
		Status: models.AnswerStatusError,
		Error:  job.ErrorMessage,
	})
}

func (s *Server) saveAnswer(job queue.Job, answer models.AnswerResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.SaveAnswerResult(ctx, job.Token, job.QuestionIndex, answer); err != nil {
		s.logger.Warn("session answer update failed", "job_id", job.ID, "error", err)
		return
	}
	s.metrics.RecordTiming(metrics.OpDBQuery, time.Since(start))
}

func questionMeta(m *storage.Meta, questionIndex int) *storage.QuestionMeta {
	key := fmt.Sprintf("%d", questionIndex)
	q, ok := m.ReceivedQuestions[key]
	if !ok {
		q = &storage.QuestionMeta{Filename: storage.VideoFileName(questionIndex)}
		m.ReceivedQuestions[key] = q
	}
	return q
}
