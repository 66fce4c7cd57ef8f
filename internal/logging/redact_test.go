package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/communicare/portal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T, rc RedactionConfig) (*Logger, *bytes.Buffer) {
	t.Helper()
	enc, err := NewRedactingEncoder(newEncoder("json"), rc)
	require.NoError(t, err)

	var buf bytes.Buffer
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return &Logger{zap: zap.New(core), config: NewDefaultConfig()}, &buf
}

func TestRedactingEncoder_FieldNames(t *testing.T) {
	logger, buf := newBufferLogger(t, NewDefaultConfig().Redaction)

	logger.Info(context.Background(), "form",
		zap.String("Password", "p4ssw0rd!"),
		zap.String("access_token", "tok_123"),
		zap.String("communityName", "Maple Grove"),
	)

	out := buf.String()
	assert.NotContains(t, out, "p4ssw0rd!")
	assert.NotContains(t, out, "tok_123")
	assert.Contains(t, out, "Maple Grove")
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	logger, buf := newBufferLogger(t, NewDefaultConfig().Redaction)

	logger.With(zap.String("token", "abc")).Info(context.Background(), "child")

	assert.NotContains(t, buf.String(), `"abc"`)
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestRedactingEncoder_MessagePattern(t *testing.T) {
	logger, buf := newBufferLogger(t, NewDefaultConfig().Redaction)

	logger.Warn(context.Background(), "upstream rejected Bearer eyJhbGciOi")

	assert.NotContains(t, buf.String(), "eyJhbGciOi")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	logger, buf := newBufferLogger(t, RedactionConfig{Enabled: false})

	logger.Info(context.Background(), "raw", zap.String("password", "visible"))

	assert.Contains(t, buf.String(), "visible")
}

func TestNewRedactingEncoder_Errors(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: true, Patterns: []string{"[a-"}})
	assert.Error(t, err)

	long := make([]byte, maxPatternLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: true, Patterns: []string{string(long)}})
	assert.Error(t, err)
}

func TestSecretAndRedactedString(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "creds",
		Secret("api_key", config.Secret("sk-123456")),
		RedactedString("password", "hunter22"),
	)

	tl.AssertField(t, "creds", "api_key", "[REDACTED:9]")
	tl.AssertField(t, "creds", "password", "[REDACTED:8]")
	tl.AssertNoSecrets(t)
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"jane@example.com": "j***@example.com",
		"a@b.co":           "a***@b.co",
		"noat":             "***",
		"@example.com":     "***",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}
