package observability

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Span is one timed stage of a request.
type Span interface {
	SetTag(key, value string)
	SetData(key string, value any)
	Finish()
}

// Tracer is the port the checkout flow reports through. Implementations
// decide where spans and exceptions end up.
type Tracer interface {
	StartSpan(ctx context.Context, op, description string) (context.Context, Span)
	CaptureException(ctx context.Context, err error)
}

type spanKey struct{}

// LogTracer writes finished spans and captured exceptions to zap.
type LogTracer struct {
	logger *zap.Logger
}

func NewLogTracer(logger *zap.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func (t *LogTracer) StartSpan(ctx context.Context, op, description string) (context.Context, Span) {
	s := &logSpan{
		logger:      t.logger,
		op:          op,
		description: description,
		start:       time.Now(),
		tags:        map[string]string{},
		data:        map[string]any{},
	}
	if parent, ok := ctx.Value(spanKey{}).(*logSpan); ok {
		s.parent = parent.op
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

func (t *LogTracer) CaptureException(ctx context.Context, err error) {
	fields := []zap.Field{zap.Error(err)}
	if s, ok := ctx.Value(spanKey{}).(*logSpan); ok {
		fields = append(fields, zap.String("span", s.op))
	}
	t.logger.Error("exception captured", fields...)
}

type logSpan struct {
	logger      *zap.Logger
	op          string
	description string
	parent      string
	start       time.Time
	tags        map[string]string
	data        map[string]any
}

func (s *logSpan) SetTag(key, value string)      { s.tags[key] = value }
func (s *logSpan) SetData(key string, value any) { s.data[key] = value }

func (s *logSpan) Finish() {
	s.logger.Debug("span finished",
		zap.String("op", s.op),
		zap.String("description", s.description),
		zap.String("parent", s.parent),
		zap.Float64("dur_ms", SinceMs(s.start)),
		zap.Any("tags", s.tags),
		zap.Any("data", s.data),
	)
}

type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, _, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (NoopTracer) CaptureException(context.Context, error) {}

type noopSpan struct{}

func (noopSpan) SetTag(string, string) {}
func (noopSpan) SetData(string, any)   {}
func (noopSpan) Finish()               {}
