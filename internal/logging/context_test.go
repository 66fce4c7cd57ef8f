package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_AllValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "abc123")
	ctx = WithFlow(ctx, FlowCommunityRegistration)
	ctx = WithDraftID(ctx, "6f1c2a3e-9d55-4b0e-8d7a-2b0c4f1e9a11")

	tl := NewTestLogger()
	tl.Info(ctx, "with fields")

	tl.AssertField(t, "with fields", "request.id", "abc123")
	tl.AssertField(t, "with fields", "flow", "registration.community")
	tl.AssertField(t, "with fields", "draft.id", "6f1c2a3e-9d55-4b0e-8d7a-2b0c4f1e9a11")
}

func TestContextFields_Trace(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := ContextFields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"trace_id", "span_id"}, keys)
}

func TestWithRequestID_InvalidIgnored(t *testing.T) {
	tests := []string{
		"",
		"has space",
		"semi;colon",
		strings.Repeat("a", maxIDLen+1),
		"\xff\xfe",
	}
	for _, id := range tests {
		ctx := WithRequestID(context.Background(), id)
		assert.Empty(t, RequestIDFromContext(ctx), "id %q should be dropped", id)
		ctx = WithDraftID(context.Background(), id)
		assert.Empty(t, DraftIDFromContext(ctx), "id %q should be dropped", id)
	}
}

func TestFlowFromContext(t *testing.T) {
	assert.Equal(t, Flow(""), FlowFromContext(context.Background()))
	ctx := WithFlow(context.Background(), FlowLogin)
	assert.Equal(t, FlowLogin, FlowFromContext(ctx))
}
