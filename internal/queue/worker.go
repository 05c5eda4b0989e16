package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AnalyzeFunc is the external analysis collaborator. It may block for the
// full upload + inference duration and is always called without the queue
// lock held. Failures are treated uniformly as transient by the queue; the
// retry decision depends only on the attempt count.
type AnalyzeFunc func(ctx context.Context, job *Job) (any, error)

// ResultFunc is invoked after the queue has recorded a job's outcome
// (success, retry scheduled, or terminal failure). It receives a copy of
// the job taken under the queue lock, so reading it never races with a
// later manual retry. The caller persists results from here; the queue
// itself does no file or database I/O.
type ResultFunc func(job Job)

// Worker is the single background consumer of the queue. It wakes on a
// short tick, enforces the minimum spacing between job starts, and drives
// one job at a time through the analysis call.
type Worker struct {
	queue    *Queue
	analyze  AnalyzeFunc
	onResult ResultFunc

	interval time.Duration // min spacing between job starts
	tick     time.Duration
	logger   *slog.Logger

	lastStarted time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWorker creates a worker for the queue. interval <= 0 selects
// DefaultProcessInterval, tick <= 0 selects DefaultPollInterval.
// onResult may be nil.
func NewWorker(q *Queue, analyze AnalyzeFunc, onResult ResultFunc, interval, tick time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultProcessInterval
	}
	if tick <= 0 {
		tick = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:    q,
		analyze:  analyze,
		onResult: onResult,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Start launches the worker goroutine. Calling Start on a running worker
// is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.logger.Warn("worker already running")
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.loop(w.stopCh, w.doneCh)
}

// Stop signals the loop to exit after its current tick and waits for it.
// An in-flight analysis call is not cancelled; the loop finishes it and
// then exits without picking up new work.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	w.logger.Info("worker stopped")
}

func (w *Worker) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	w.logger.Info("worker loop started", "interval", w.interval, "tick", w.tick)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.step()
		}
	}
}

// step runs one poll iteration: check both gates, dequeue, process.
// Any analysis error or panic is converted to a failure report; the loop
// itself never crashes.
func (w *Worker) step() {
	if w.queue.Busy() {
		return
	}
	if time.Since(w.lastStarted) < w.interval {
		return
	}

	job := w.queue.Next()
	if job == nil {
		return
	}

	w.lastStarted = time.Now()
	w.queue.MarkProcessing(job)
	w.logger.Info("processing job", "job_id", job.ID, "attempt", job.Retry.AutoRetryAttempt)

	var outcome Job
	result, err := w.safeAnalyze(job)
	if err != nil {
		w.logger.Error("analysis failed", "job_id", job.ID, "error", err)
		outcome = w.queue.MarkFailed(job, err.Error())
	} else {
		outcome = w.queue.MarkSuccess(job, result)
	}

	if w.onResult != nil {
		w.onResult(outcome)
	}
}

func (w *Worker) safeAnalyze(job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panic: %v", r)
		}
	}()
	return w.analyze(context.Background(), job)
}
