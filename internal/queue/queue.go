package queue

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Timing defaults. The 15s spacing keeps throughput at 4 jobs/minute, safe
// under the provider's 5 requests/minute quota. The 70s retry delay lets a
// quota window reset before the single automatic retry runs.
const (
	DefaultProcessInterval = 15 * time.Second
	DefaultAutoRetryDelay  = 70 * time.Second
	DefaultPollInterval    = time.Second
)

// ErrJobNotFound indicates a status lookup for an unknown job identity.
// Distinct from "still pending": pending jobs resolve normally.
var ErrJobNotFound = errors.New("job not found")

// AddRequest carries the fields needed to admit a job.
type AddRequest struct {
	Token         string
	Folder        string
	QuestionIndex int
	QuestionText  string
	VideoPath     string

	// ManualRetry marks a user-triggered retry. On an existing job it moves
	// the job to the back of the queue and clears its stale result.
	ManualRetry bool
}

// Queue is the in-memory FIFO of analysis jobs with an identity index.
// It is the only component that mutates job status; the worker requests
// jobs via Next and reports outcomes via the Mark methods.
//
// Jobs are never deleted for the lifetime of the process so that status
// polling keeps working after completion.
type Queue struct {
	mu sync.Mutex

	fifo []*Job
	jobs map[string]*Job

	// scheduled holds jobs waiting out the automatic-retry delay, in the
	// order they failed. They re-enter the fifo (at the front) only once
	// the delay has expired.
	scheduled []*Job

	// current is the job in StatusProcessing, nil when idle.
	current *Job

	retryDelay time.Duration
	logger     *slog.Logger
}

// New creates an empty queue. retryDelay <= 0 selects DefaultAutoRetryDelay.
func New(retryDelay time.Duration, logger *slog.Logger) *Queue {
	if retryDelay <= 0 {
		retryDelay = DefaultAutoRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:       make(map[string]*Job),
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Add admits a job, merging by identity. Submitting the same
// (token, question) pair twice never creates a second entry.
//
// For an existing job, ManualRetry=true re-appends it to the back of the
// queue. A plain resubmission leaves queued, scheduled and processing jobs
// exactly where they are; only a job that already reached a terminal state
// re-enters the queue as fresh work.
func (q *Queue) Add(req AddRequest) string {
	id := JobID(req.Token, req.QuestionIndex)

	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		if req.ManualRetry {
			q.requeueManualLocked(job)
		} else {
			q.resubmitLocked(job, req)
		}
		return id
	}

	job := &Job{
		ID:            id,
		Token:         req.Token,
		Folder:        req.Folder,
		QuestionIndex: req.QuestionIndex,
		QuestionText:  req.QuestionText,
		VideoPath:     req.VideoPath,
		CreatedAt:     time.Now(),
		Status:        StatusPending,
		IsManualRetry: req.ManualRetry,
	}
	if req.ManualRetry {
		job.Status = StatusManualRetryPending
	}

	q.jobs[id] = job
	q.fifo = append(q.fifo, job)
	q.logger.Info("job added", "job_id", id, "queue_size", len(q.fifo))

	return id
}

// requeueManualLocked moves an existing job to the back of the fifo in
// StatusManualRetryPending and clears stale results. A job currently
// processing is left alone; its outcome will land normally.
func (q *Queue) requeueManualLocked(job *Job) {
	if job.Status == StatusProcessing {
		q.logger.Warn("manual retry ignored, job is processing", "job_id", job.ID)
		return
	}

	q.removeLocked(job)
	q.removeScheduledLocked(job)

	job.Status = StatusManualRetryPending
	job.IsManualRetry = true
	job.Result = nil
	job.ErrorMessage = ""
	job.Retry.AutoRetryAt = nil
	job.CompletedAt = nil

	q.fifo = append(q.fifo, job)
	q.logger.Info("manual retry queued", "job_id", job.ID, "position", len(q.fifo))
}

// resubmitLocked handles a duplicate non-manual submission. A job still in
// flight through the pipeline is left untouched so the duplicate cannot
// shrink the queue or burn the automatic retry; a terminal job restarts
// from scratch at the back of the queue with a fresh attempt budget.
func (q *Queue) resubmitLocked(job *Job, req AddRequest) {
	if !job.Status.Terminal() {
		q.logger.Info("duplicate submit merged", "job_id", job.ID, "status", job.Status)
		return
	}

	job.QuestionText = req.QuestionText
	job.VideoPath = req.VideoPath
	job.Status = StatusPending
	job.IsManualRetry = false
	job.Result = nil
	job.ErrorMessage = ""
	job.Retry = RetryInfo{}
	job.StartedAt = nil
	job.CompletedAt = nil
	job.CreatedAt = time.Now()

	q.fifo = append(q.fifo, job)
	q.logger.Info("terminal job resubmitted", "job_id", job.ID, "queue_size", len(q.fifo))
}

// scheduleRetryLocked puts a job into StatusRetryScheduled. The job does not
// rejoin the fifo until Next finds its delay expired. A job is held in
// scheduled at most once.
func (q *Queue) scheduleRetryLocked(job *Job, lastError string) {
	q.removeLocked(job)
	q.removeScheduledLocked(job)

	at := time.Now().Add(q.retryDelay)
	job.Status = StatusRetryScheduled
	job.Retry.AutoRetryAttempt++
	job.Retry.AutoRetryAt = &at
	if lastError != "" {
		job.Retry.LastError = lastError
	}
	job.IsManualRetry = false

	q.scheduled = append(q.scheduled, job)
	q.logger.Info("auto retry scheduled", "job_id", job.ID, "retry_at", at)
}

// removeLocked drops a job from the fifo if present.
func (q *Queue) removeLocked(job *Job) {
	for i, j := range q.fifo {
		if j == job {
			q.fifo = append(q.fifo[:i], q.fifo[i+1:]...)
			return
		}
	}
}

// removeScheduledLocked drops a job from the retry holding list if present.
func (q *Queue) removeScheduledLocked(job *Job) {
	for i, j := range q.scheduled {
		if j == job {
			q.scheduled = append(q.scheduled[:i], q.scheduled[i+1:]...)
			return
		}
	}
}

// Next returns the next job eligible for processing, or nil.
//
// Expired automatic retries are promoted first: the oldest scheduled job
// whose delay has passed flips back to StatusPending at the front of the
// fifo, ahead of newer work. The fifo head is then popped if it is in a
// dequeueable state.
func (q *Queue) Next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for i, job := range q.scheduled {
		if job.Retry.AutoRetryAt != nil && !now.Before(*job.Retry.AutoRetryAt) {
			q.scheduled = append(q.scheduled[:i], q.scheduled[i+1:]...)
			job.Status = StatusPending
			q.fifo = append([]*Job{job}, q.fifo...)
			q.logger.Info("retry delay expired, job moved to front", "job_id", job.ID)
			break
		}
	}

	if len(q.fifo) == 0 {
		return nil
	}
	head := q.fifo[0]
	if head.Status != StatusPending && head.Status != StatusManualRetryPending {
		return nil
	}
	q.fifo = q.fifo[1:]
	return head
}

// MarkProcessing records that the worker claimed the job. Exactly one job
// may be processing at a time; the worker checks Busy before dequeuing.
func (q *Queue) MarkProcessing(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	job.Status = StatusProcessing
	job.StartedAt = &now
	q.current = job
}

// MarkSuccess records a successful analysis result. The returned copy is
// taken under the lock; callers persist from the copy, never from the live
// job, which a concurrent manual retry may rewrite.
func (q *Queue) MarkSuccess(job *Job, result any) Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	job.Status = StatusSuccess
	job.Result = result
	job.ErrorMessage = ""
	job.CompletedAt = &now
	q.current = nil

	q.logger.Info("job completed", "job_id", job.ID)
	return *job
}

// MarkFailed records a failed analysis. The first failure consumes the
// single automatic retry; the second is terminal. Like MarkSuccess it
// returns a copy taken under the lock.
func (q *Queue) MarkFailed(job *Job, errMsg string) Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.ErrorMessage = errMsg
	q.current = nil

	if job.Retry.AutoRetryAttempt == 0 {
		q.scheduleRetryLocked(job, errMsg)
		return *job
	}

	now := time.Now()
	job.Status = StatusFailed
	job.CompletedAt = &now
	q.logger.Info("job failed permanently", "job_id", job.ID, "error", errMsg)
	return *job
}

// Busy reports whether a job is currently processing.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil
}

// Len returns the number of jobs waiting in the fifo.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fifo)
}

// JobView is a point-in-time copy of job state for status polling.
type JobView struct {
	JobID         string     `json:"job_id"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Retry         RetryInfo  `json:"retry"`
	IsManualRetry bool       `json:"is_manual_retry"`

	// Position is the count of jobs ahead in the fifo, -1 when the job is
	// not queued. Approximate: jobs waiting out a retry delay are not
	// counted until their timer fires.
	Position int `json:"position"`

	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status returns a snapshot of one job's state, or ErrJobNotFound.
func (q *Queue) Status(jobID string) (JobView, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return JobView{}, ErrJobNotFound
	}

	view := JobView{
		JobID:         job.ID,
		Status:        job.Status,
		CreatedAt:     job.CreatedAt,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
		Retry:         job.Retry,
		IsManualRetry: job.IsManualRetry,
		Position:      -1,
		Error:         job.ErrorMessage,
	}
	if job.Status == StatusSuccess {
		view.Result = job.Result
	}
	for i, j := range q.fifo {
		if j == job {
			view.Position = i
			break
		}
	}

	return view, nil
}

// JobSummary is one queued job in a Snapshot.
type JobSummary struct {
	JobID         string    `json:"job_id"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	IsManualRetry bool      `json:"is_manual_retry"`
}

// Snapshot is the monitoring view of the whole queue.
type Snapshot struct {
	QueueSize  int          `json:"queue_size"`
	Processing bool         `json:"processing"`
	CurrentJob string       `json:"current_job,omitempty"`
	Scheduled  int          `json:"scheduled_retries"`
	Jobs       []JobSummary `json:"jobs"`
}

// Snapshot returns a monitoring/debug view of the queue. No side effects.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{
		QueueSize:  len(q.fifo),
		Processing: q.current != nil,
		Scheduled:  len(q.scheduled),
		Jobs:       make([]JobSummary, 0, len(q.fifo)),
	}
	if q.current != nil {
		snap.CurrentJob = q.current.ID
	}
	for _, job := range q.fifo {
		snap.Jobs = append(snap.Jobs, JobSummary{
			JobID:         job.ID,
			Status:        job.Status,
			CreatedAt:     job.CreatedAt,
			IsManualRetry: job.IsManualRetry,
		})
	}

	return snap
}
