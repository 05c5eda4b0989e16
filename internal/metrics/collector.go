// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`

	AnalysisSuccesses int64 `json:"analysis_successes"`
	AnalysisFailures  int64 `json:"analysis_failures"`
	AutoRetries       int64 `json:"auto_retries"`
	ManualRetries     int64 `json:"manual_retries"`
	Uploads           int64 `json:"uploads"`

	Analysis  *OperationSnapshot `json:"analysis,omitempty"`
	QueueWait *OperationSnapshot `json:"queue_wait,omitempty"`
	DBQuery   *OperationSnapshot `json:"db_query,omitempty"`
	Upload    *OperationSnapshot `json:"upload,omitempty"`
}

// Operation names for the collector.
const (
	OpAnalysis  = "analysis"
	OpQueueWait = "queue_wait"
	OpDBQuery   = "db_query"
	OpUpload    = "upload"
)

// Counter names for the collector.
const (
	CtrAnalysisSuccess = "analysis_success"
	CtrAnalysisFailure = "analysis_failure"
	CtrAutoRetry       = "auto_retry"
	CtrManualRetry     = "manual_retry"
	CtrUpload          = "upload"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	counters  map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		counters:  make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Increment bumps a named counter by one.
func (c *Collector) Increment(counter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[counter]++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),

		AnalysisSuccesses: c.counters[CtrAnalysisSuccess],
		AnalysisFailures:  c.counters[CtrAnalysisFailure],
		AutoRetries:       c.counters[CtrAutoRetry],
		ManualRetries:     c.counters[CtrManualRetry],
		Uploads:           c.counters[CtrUpload],

		Analysis:  snapshotOp(c.ops[OpAnalysis]),
		QueueWait: snapshotOp(c.ops[OpQueueWait]),
		DBQuery:   snapshotOp(c.ops[OpDBQuery]),
		Upload:    snapshotOp(c.ops[OpUpload]),
	}
}
