package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

type requestIDKey struct{}

// WithRequestID tags ctx so spans and metrics recorded under it carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

type span struct {
	logger    *slog.Logger
	component string
	operation string
	requestID string
	start     time.Time
}

func (s *span) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("component", s.component),
		slog.String("operation", s.operation),
	}
	if s.requestID != "" {
		attrs = append(attrs, slog.String("request_id", s.requestID))
	}
	return attrs
}

func (s *span) end(ctx context.Context, err error) {
	attrs := append(s.attrs(), slog.Duration("duration", time.Since(s.start)))
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", err))
	}
	s.logger.LogAttrs(ctx, level, "[OBS] span end", attrs...)
}

// StartSpan logs the start of component/operation and returns a func that
// logs its end with the elapsed time. Failed spans are logged at WARN.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	s := &span{
		logger:    logger,
		component: component,
		operation: operation,
		requestID: RequestID(ctx),
		start:     time.Now(),
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "[OBS] span start", s.attrs()...)
	return ctx, func(err error) { s.end(ctx, err) }
}

// RecordMetric logs one datapoint. Labels are emitted in key order.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "[OBS] metric", attrs...)
}
