package core

import (
	"context"
	"time"
)

// Logger receives structured key/value log events from the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome and duration of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan finishes a single traced operation.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AuditStatus tags an audit entry outcome.
type AuditStatus string

// Audit entry outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one service operation for the audit trail.
type AuditEntry struct {
	Operation  string      `json:"operation"`
	Caller     Identity    `json:"caller"`
	EntityID   string      `json:"entity_id,omitempty"`
	Status     AuditStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
	Violations int         `json:"violations,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// AuditRecorder receives one entry per mutating service call.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit recorder.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// instrument wraps a mutating operation with tracing, metrics, logging, and
// audit recording. entityID is evaluated after body so create operations can
// report the identifier they allocated.
func (s *Service) instrument(ctx context.Context, operation string, caller Identity, body func(context.Context) (Result, error), entityID func() string) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	res, err := body(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))

	entry := AuditEntry{
		Operation:  operation,
		Caller:     caller,
		Status:     AuditStatusSuccess,
		Violations: len(res.Violations),
		RecordedAt: time.Now().UTC(),
	}
	if entityID != nil {
		entry.EntityID = entityID()
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", operation, "caller", string(caller), "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation, "caller", string(caller), "entity_id", entry.EntityID)
	}
	s.audit.Record(ctx, entry)
	return res, err
}

// activeVerifier reports whether caller holds an active authorization under
// the organization.
func activeVerifier(view TransactionView, organization, caller Identity) bool {
	rec, ok := view.FindAuthorization(organization, caller)
	return ok && rec.Active
}
