package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

var expvarSeq atomic.Uint64

// OperationStats aggregates the outcomes recorded for one ledger operation.
type OperationStats struct {
	Success int64   `json:"success"`
	Error   int64   `json:"error"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// ExpvarMetricsSnapshot is the read-only view exported under the recorder's
// expvar name.
type ExpvarMetricsSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	StartedAt  time.Time                 `json:"started_at"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// ExpvarMetricsRecorder implements MetricsRecorder over process-local expvar
// state: per-operation success/error counts plus total and worst-case
// latency. Suited to deployments that scrape debug vars instead of running a
// metrics backend.
type ExpvarMetricsRecorder struct {
	name    string
	started time.Time
	mu      sync.Mutex
	ops     map[string]OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under the supplied expvar
// name, generating a unique one when empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("ledger_service_metrics_%d", expvarSeq.Add(1))
	}
	r := &ExpvarMetricsRecorder{
		name:    name,
		started: time.Now().UTC(),
		ops:     make(map[string]OperationStats),
	}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe folds one operation outcome into the aggregate.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.ops[operation]
	if success {
		stats.Success++
	} else {
		stats.Error++
	}
	stats.TotalMS += ms
	if ms > stats.MaxMS {
		stats.MaxMS = ms
	}
	r.ops[operation] = stats
}

// Snapshot copies the aggregated stats.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]OperationStats, len(r.ops))
	for op, stats := range r.ops {
		ops[op] = stats
	}
	return ExpvarMetricsSnapshot{
		Operations: ops,
		StartedAt:  r.started,
		RecordedAt: time.Now().UTC(),
	}
}

// TraceEntry is one finished span. Seq orders entries across operations.
type TraceEntry struct {
	Seq        uint64    `json:"seq"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTraceTracer writes one JSON line per finished span and retains entries
// for inspection. A nil writer keeps retention only.
type JSONTraceTracer struct {
	mu      sync.Mutex
	seq     uint64
	out     io.Writer
	entries []TraceEntry
}

// NewJSONTracer returns a tracer emitting JSON lines to w.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	return &JSONTraceTracer{out: w}
}

// Entries returns a copy of the finished spans in completion order.
func (t *JSONTraceTracer) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	entry := TraceEntry{
		Operation:  s.operation,
		Status:     outcomeSuccess,
		StartedAt:  s.started,
		DurationMS: float64(time.Since(s.started)) / float64(time.Millisecond),
	}
	if err != nil {
		entry.Status = outcomeError
		entry.Error = err.Error()
	}

	t := s.tracer
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	entry.Seq = t.seq
	t.entries = append(t.entries, entry)
	if t.out != nil {
		if line, mErr := json.Marshal(entry); mErr == nil {
			_, _ = t.out.Write(append(line, '\n'))
		}
	}
}
