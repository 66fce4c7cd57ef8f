package registration

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/drafts"
	"github.com/communicare/portal/internal/events"
	"github.com/communicare/portal/internal/logging"
	"github.com/communicare/portal/internal/notify"
	"github.com/communicare/portal/internal/validate"
)

// Notification messages.
const (
	MsgSuccess  = "Registration successful! Redirecting..."
	MsgFallback = "Registration failed. Please try again."
)

// ErrDraftNotFound is returned for unknown or expired draft IDs.
var ErrDraftNotFound = drafts.ErrDraftNotFound

// Options configures a Service. Zero values fall back to sensible defaults.
type Options struct {
	RequireAddress  bool
	NotificationTTL time.Duration
	Drafts          drafts.Options
	Publisher       events.Publisher
	Logger          *logging.Logger
	Tracer          trace.Tracer
	Clock           notify.Clock
}

// Outcome is the user-visible result of a submission.
type Outcome struct {
	Notification notify.Notification
	// Session is set only when the provider accepted the registration.
	Session *authclient.Session
}

// Service owns the community drafts and submits registrations to the provider.
type Service struct {
	collab      authclient.Collaborator
	store       *drafts.Store[*Wizard]
	rules       validate.Rules
	memberRules validate.Rules
	publisher   events.Publisher
	logger      *logging.Logger
	tracer      trace.Tracer
	metrics     *Metrics
	now         notify.Clock
	ttl         time.Duration
}

// NewService creates a registration service. Call Close to stop the draft sweeper.
func NewService(collab authclient.Collaborator, opts Options) *Service {
	s := &Service{
		collab:      collab,
		rules:       validate.CommunityRules(opts.RequireAddress),
		memberRules: validate.MemberRules(),
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		metrics:     NewMetrics(),
		now:         opts.Clock,
		ttl:         opts.NotificationTTL,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.Named("registration")
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = notify.DefaultTTL
	}

	draftOpts := opts.Drafts
	onEvict := draftOpts.OnEvict
	draftOpts.OnEvict = func(id string) {
		s.logger.Debug(context.Background(), "draft expired", zap.String("draft.id", id))
		s.metrics.DraftsActive.Dec()
		if onEvict != nil {
			onEvict(id)
		}
	}
	if draftOpts.Now == nil {
		draftOpts.Now = s.now
	}
	s.store = drafts.NewStore[*Wizard](draftOpts)
	return s
}

// Close stops the draft sweeper and drops every draft.
func (s *Service) Close() {
	n := s.store.Len()
	s.store.Close()
	s.metrics.DraftsActive.Sub(float64(n))
}

// Start creates an empty draft.
func (s *Service) Start(ctx context.Context) (View, error) {
	_, w, err := s.store.Create(func(id string) *Wizard {
		return NewWizard(id, s.rules)
	})
	if err != nil {
		return View{}, err
	}
	s.metrics.DraftsCreatedTotal.Inc()
	s.metrics.DraftsActive.Inc()

	s.logger.Debug(logging.WithDraftID(ctx, w.ID()), "draft started")
	return w.View(s.now()), nil
}

// Lookup returns the wizard for id.
func (s *Service) Lookup(id string) (*Wizard, error) {
	return s.store.Get(id)
}

// View returns the current snapshot of draft id.
func (s *Service) View(id string) (View, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	return w.View(s.now()), nil
}

// Edit applies field edits to draft id.
func (s *Service) Edit(id string, values validate.Values) (View, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	if err := w.EditMany(values); err != nil {
		return w.View(s.now()), err
	}
	return w.View(s.now()), nil
}

// Advance moves draft id to the AdminAccount step if its community info is valid.
func (s *Service) Advance(ctx context.Context, id string) (View, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}

	err = w.Advance()
	var verr *validate.Error
	switch {
	case err == nil:
		s.metrics.AdvanceTotal.WithLabelValues(outcomeSuccess).Inc()
	case errors.As(err, &verr):
		s.metrics.AdvanceTotal.WithLabelValues(outcomeInvalid).Inc()
		s.logger.Debug(logging.WithDraftID(ctx, id), "community info invalid",
			zap.Strings("fields", fieldNames(verr.Fields)))
	}
	return w.View(s.now()), err
}

// Retreat moves draft id back to the CommunityInfo step.
func (s *Service) Retreat(id string) (View, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	err = w.Retreat()
	return w.View(s.now()), err
}

// CloseNotification hides the notification of draft id.
func (s *Service) CloseNotification(id string) (View, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}
	w.CloseNotification()
	return w.View(s.now()), nil
}

// Submit validates the AdminAccount step of draft id and registers the
// community with the provider. Provider failures are not errors: they are
// reported through the Outcome's notification. A successful draft is removed.
func (s *Service) Submit(ctx context.Context, id string) (View, Outcome, error) {
	w, err := s.store.Get(id)
	if err != nil {
		return View{}, Outcome{}, err
	}

	ctx = logging.WithDraftID(logging.WithFlow(ctx, logging.FlowCommunityRegistration), id)
	ctx, span := s.tracer.Start(ctx, "registration.submit",
		trace.WithAttributes(attribute.String("registration.user_type", authclient.UserTypeAdmin)))
	defer span.End()

	payload, err := w.beginSubmit()
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			s.metrics.SubmissionsTotal.WithLabelValues(authclient.UserTypeAdmin, outcomeInvalid).Inc()
			span.SetAttributes(attribute.StringSlice("registration.invalid_fields", fieldNames(verr.Fields)))
		}
		span.SetStatus(codes.Error, err.Error())
		return w.View(s.now()), Outcome{}, err
	}

	out := s.register(ctx, span, payload, *payload.CompanyName)
	w.finishSubmit(out.Notification, out.Session != nil)

	view := w.View(s.now())
	if out.Session != nil {
		if s.store.Delete(id) {
			s.metrics.DraftsActive.Dec()
		}
	}
	return view, out, nil
}

// RegisterMember validates and submits the member form in one call.
func (s *Service) RegisterMember(ctx context.Context, values validate.Values) (Outcome, error) {
	ctx = logging.WithFlow(ctx, logging.FlowMemberRegistration)
	ctx, span := s.tracer.Start(ctx, "registration.submit",
		trace.WithAttributes(attribute.String("registration.user_type", authclient.UserTypeMember)))
	defer span.End()

	errs, ok := s.memberRules.Validate(values, validate.MemberFields...)
	if !ok {
		s.metrics.SubmissionsTotal.WithLabelValues(authclient.UserTypeMember, outcomeInvalid).Inc()
		span.SetAttributes(attribute.StringSlice("registration.invalid_fields", fieldNames(errs)))
		span.SetStatus(codes.Error, "validation failed")
		return Outcome{}, validate.Check(errs)
	}

	return s.register(ctx, span, MemberPayload(values), ""), nil
}

// register calls the provider and turns the result into an Outcome.
func (s *Service) register(ctx context.Context, span trace.Span, payload authclient.RegisterPayload, community string) Outcome {
	start := time.Now()
	session, err := s.collab.Register(ctx, payload)
	s.metrics.SubmitDuration.WithLabelValues(payload.UserType).Observe(time.Since(start).Seconds())

	fields := []zap.Field{
		zap.String("user_type", payload.UserType),
		logging.Email("email", payload.Email),
	}

	if err != nil {
		outcome := outcomeError
		var ce *authclient.CollaboratorError
		if errors.As(err, &ce) {
			outcome = outcomeRejected
			span.SetAttributes(attribute.Int("auth.status", ce.Status))
		}
		s.metrics.SubmissionsTotal.WithLabelValues(payload.UserType, outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn(ctx, "registration failed", append(fields, zap.Error(err))...)
		return Outcome{Notification: notify.Failure(authclient.UserMessage(err, MsgFallback), s.now(), s.ttl)}
	}

	if session == nil {
		session = &authclient.Session{}
	}
	s.metrics.SubmissionsTotal.WithLabelValues(payload.UserType, outcomeSuccess).Inc()
	span.SetStatus(codes.Ok, "")
	s.logger.Info(ctx, "registration succeeded", fields...)

	ev := events.Event{
		Type:        events.TypeRegistrationSucceeded,
		UserType:    payload.UserType,
		EmailDomain: events.EmailDomain(payload.Email),
		Community:   community,
		At:          s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "failed to publish registration event", zap.Error(err))
	}

	return Outcome{
		Notification: notify.Success(MsgSuccess, s.now(), s.ttl),
		Session:      session,
	}
}

func fieldNames(errs validate.FieldErrors) []string {
	names := make([]string, 0, len(errs))
	for f := range errs {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}
