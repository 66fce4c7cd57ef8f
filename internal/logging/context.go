package logging

import (
	"context"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Flow names the form a request belongs to.
type Flow string

const (
	FlowCommunityRegistration Flow = "registration.community"
	FlowMemberRegistration    Flow = "registration.member"
	FlowLogin                 Flow = "login"
	FlowLogout                Flow = "logout"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if flow := FlowFromContext(ctx); flow != "" {
		fields = append(fields, zap.String("flow", string(flow)))
	}
	if draftID := DraftIDFromContext(ctx); draftID != "" {
		fields = append(fields, zap.String("draft.id", draftID))
	}

	return fields
}

type requestCtxKey struct{}
type flowCtxKey struct{}
type draftCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validID reports whether id is safe to attach to log entries.
// Request IDs can come from the client, so anything else is dropped.
func validID(id string) bool {
	return id != "" &&
		len(id) <= maxIDLen &&
		utf8.ValidString(id) &&
		idPattern.MatchString(id)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context. Invalid IDs are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if !validID(requestID) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// FlowFromContext extracts the form flow from context.
func FlowFromContext(ctx context.Context) Flow {
	if f, ok := ctx.Value(flowCtxKey{}).(Flow); ok {
		return f
	}
	return ""
}

// WithFlow adds the form flow to context.
func WithFlow(ctx context.Context, flow Flow) context.Context {
	return context.WithValue(ctx, flowCtxKey{}, flow)
}

// DraftIDFromContext extracts the wizard draft ID from context.
func DraftIDFromContext(ctx context.Context) string {
	if d, ok := ctx.Value(draftCtxKey{}).(string); ok {
		return d
	}
	return ""
}

// WithDraftID adds the wizard draft ID to context. Invalid IDs are ignored.
func WithDraftID(ctx context.Context, draftID string) context.Context {
	if !validID(draftID) {
		return ctx
	}
	return context.WithValue(ctx, draftCtxKey{}, draftID)
}

type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
