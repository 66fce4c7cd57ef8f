// Package login implements the login form and logout.
package login

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/events"
	"github.com/communicare/portal/internal/logging"
	"github.com/communicare/portal/internal/notify"
	"github.com/communicare/portal/internal/validate"
)

// Notification messages.
const (
	MsgSuccess  = "Login successful! Redirecting..."
	MsgFallback = "Login failed. Please try again."
)

var (
	attemptsOnce  sync.Once
	attemptsTotal *prometheus.CounterVec
)

// attempts returns portal_login_attempts_total{outcome}, registered once per process.
func attempts() *prometheus.CounterVec {
	attemptsOnce.Do(func() {
		attemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_login_attempts_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"}, // "success", "rejected", "error" or "invalid"
		)
	})
	return attemptsTotal
}

// Options configures a Service.
type Options struct {
	NotificationTTL time.Duration
	Publisher       events.Publisher
	Logger          *logging.Logger
	Tracer          trace.Tracer
	Clock           notify.Clock
}

// Outcome is the user-visible result of a login attempt.
type Outcome struct {
	Notification notify.Notification
	// Session is set only when the provider accepted the credentials.
	Session *authclient.Session
}

// Service validates login forms and hands them to the provider.
type Service struct {
	collab    authclient.Collaborator
	rules     validate.Rules
	publisher events.Publisher
	logger    *logging.Logger
	tracer    trace.Tracer
	attempts  *prometheus.CounterVec
	now       notify.Clock
	ttl       time.Duration
}

// NewService creates a login service.
func NewService(collab authclient.Collaborator, opts Options) *Service {
	s := &Service{
		collab:    collab,
		rules:     validate.LoginRules(),
		publisher: opts.Publisher,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		attempts:  attempts(),
		now:       opts.Clock,
		ttl:       opts.NotificationTTL,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.Named("login")
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = notify.DefaultTTL
	}
	return s
}

// Login validates values and, when they are clean, asks the provider for a
// session. Invalid input returns a *validate.Error without calling the
// provider. Provider failures are reported through the Outcome.
func (s *Service) Login(ctx context.Context, values validate.Values) (Outcome, error) {
	ctx = logging.WithFlow(ctx, logging.FlowLogin)
	ctx, span := s.tracer.Start(ctx, "login")
	defer span.End()

	errs, ok := s.rules.Validate(values, validate.LoginFields...)
	if !ok {
		s.attempts.WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, "validation failed")
		return Outcome{}, validate.Check(errs)
	}

	email := values[validate.Email]
	session, err := s.collab.Login(ctx, authclient.Credentials{
		Email:    email,
		Password: values[validate.Password],
	})
	if err != nil {
		outcome := "error"
		var ce *authclient.CollaboratorError
		if errors.As(err, &ce) {
			outcome = "rejected"
			span.SetAttributes(attribute.Int("auth.status", ce.Status))
		}
		s.attempts.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn(ctx, "login failed", logging.Email("email", email), zap.Error(err))
		return Outcome{Notification: notify.Failure(authclient.UserMessage(err, MsgFallback), s.now(), s.ttl)}, nil
	}

	if session == nil {
		session = &authclient.Session{}
	}
	s.attempts.WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "")
	s.logger.Info(ctx, "login succeeded",
		logging.Email("email", email),
		zap.String("user_type", session.UserType))

	ev := events.Event{
		Type:        events.TypeLoginSucceeded,
		UserType:    session.UserType,
		EmailDomain: events.EmailDomain(email),
		Community:   session.CommunityName,
		At:          s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "failed to publish login event", zap.Error(err))
	}

	return Outcome{
		Notification: notify.Success(MsgSuccess, s.now(), s.ttl),
		Session:      session,
	}, nil
}

// Logout tells the provider to end the session. It never fails from the
// caller's point of view; provider errors are logged. An empty token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	ctx = logging.WithFlow(ctx, logging.FlowLogout)
	ctx, span := s.tracer.Start(ctx, "logout")
	defer span.End()

	if err := s.collab.Logout(ctx, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "logout failed")
		s.logger.Warn(ctx, "logout failed", zap.Error(err))
		return
	}
	s.logger.Debug(ctx, "logged out")
}
