// Package queue implements the rate-limited, single-consumer queue that
// sequences AI analysis jobs against the provider's request quota.
package queue

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	// StatusPending means the job is waiting in the queue.
	StatusPending Status = "pending"
	// StatusProcessing means the job is currently running. At most one job
	// holds this status process-wide.
	StatusProcessing Status = "processing"
	// StatusSuccess means the job completed successfully.
	StatusSuccess Status = "success"
	// StatusFailed means the job failed with no automatic retry left.
	StatusFailed Status = "failed"
	// StatusRetryScheduled means the job failed and is waiting out the
	// automatic-retry delay. Invisible to dequeue until the delay expires.
	StatusRetryScheduled Status = "retry_scheduled"
	// StatusManualRetryPending means the user requested a retry and the job
	// is waiting at the back of the queue.
	StatusManualRetryPending Status = "manual_retry_pending"
)

// Terminal reports whether the status is final. Terminal jobs stay put
// until a manual retry or a fresh upload restarts them.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// RetryInfo tracks automatic-retry bookkeeping for a job.
type RetryInfo struct {
	// AutoRetryAttempt is 0 or 1; a job gets exactly one automatic retry.
	AutoRetryAttempt int        `json:"auto_retry_attempt"`
	AutoRetryAt      *time.Time `json:"auto_retry_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
}

// Job is one unit of analysis work: one question's video from one session.
// Identity is the (session token, question index) pair; the queue merges
// duplicate submissions for the same identity into the existing job.
//
// The payload fields (Folder, QuestionText, VideoPath) are opaque to the
// queue and passed through to the analysis call.
type Job struct {
	ID            string
	Token         string
	Folder        string
	QuestionIndex int
	QuestionText  string
	VideoPath     string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Status      Status

	Retry RetryInfo

	// Result holds the analysis payload once Status is StatusSuccess.
	Result any
	// ErrorMessage holds the last failure text, preserved verbatim.
	ErrorMessage string

	IsManualRetry bool
}

// JobID builds the identity key for a (session token, question index) pair.
func JobID(token string, questionIndex int) string {
	return fmt.Sprintf("%s:q%d", token, questionIndex)
}
