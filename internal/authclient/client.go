package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/communicare/portal/internal/config"
	"github.com/communicare/portal/internal/logging"
)

const (
	defaultBaseBackoff = 200 * time.Millisecond
	maxResponseSize    = 1 << 20
)

// Client is the HTTP Collaborator.
type Client struct {
	baseURL    string
	apiKey     config.Secret
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient creates a provider client from auth settings.
func NewClient(cfg config.AuthConfig, logger *logging.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("auth base_url is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		backoff:    defaultBaseBackoff,
		logger:     logger.Named("authclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var s Session
	if err := c.post(ctx, "/auth/login", "", creds, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, payload RegisterPayload) (*Session, error) {
	var s Session
	if err := c.post(ctx, "/auth/register", "", payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Logout revokes token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.post(ctx, "/auth/logout", token, nil, nil)
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// post sends body to path, retrying 429 and 5xx with exponential backoff.
func (c *Client) post(ctx context.Context, path, token string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.do(ctx, path, token, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
		c.logger.Warn(ctx, "auth provider call failed, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return fmt.Errorf("max retries exceeded: %w", errors.Unwrap(lastErr))
}

func (c *Client) do(ctx context.Context, path, token string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey.IsSet() {
		req.Header.Set("X-API-Key", c.apiKey.Value())
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retryableError{err: fmt.Errorf("auth provider request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Trace(ctx, "auth provider response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ce := &CollaboratorError{Status: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &retryableError{err: ce}
		}
		return ce
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": {"message": ...}}.
// A bare {"error": "..."} string is accepted too.
func errorMessage(body []byte) string {
	var flat struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err != nil {
		return ""
	}
	if flat.Message != "" {
		return flat.Message
	}
	if len(flat.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(flat.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	var s string
	if err := json.Unmarshal(flat.Error, &s); err == nil {
		return s
	}
	return ""
}
