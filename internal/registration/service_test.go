package registration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap/zapcore"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/drafts"
	"github.com/communicare/portal/internal/events"
	"github.com/communicare/portal/internal/logging"
	"github.com/communicare/portal/internal/notify"
	"github.com/communicare/portal/internal/telemetry"
	"github.com/communicare/portal/internal/validate"
)

type fakeCollaborator struct {
	mu       sync.Mutex
	payloads []authclient.RegisterPayload
	session  *authclient.Session
	err      error

	// When set, Register signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCollaborator) Login(context.Context, authclient.Credentials) (*authclient.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCollaborator) Register(ctx context.Context, p authclient.RegisterPayload) (*authclient.Session, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeCollaborator) Logout(context.Context, string) error { return nil }

func (f *fakeCollaborator) calls() []authclient.RegisterPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]authclient.RegisterPayload(nil), f.payloads...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type harness struct {
	svc       *Service
	collab    *fakeCollaborator
	publisher *recordingPublisher
	logger    *logging.TestLogger
	tel       *telemetry.TestTelemetry
}

func newHarness(t *testing.T, collab *fakeCollaborator) *harness {
	t.Helper()
	h := &harness{
		collab:    collab,
		publisher: &recordingPublisher{},
		logger:    logging.NewTestLogger(),
		tel:       telemetry.NewTestTelemetry(),
	}
	h.svc = NewService(collab, Options{
		Publisher: h.publisher,
		Logger:    h.logger.Logger,
		Tracer:    h.tel.Tracer("registration-test"),
		Clock:     func() time.Time { return testNow },
		Drafts:    drafts.Options{IdleTTL: time.Hour, SweepInterval: time.Hour},
	})
	t.Cleanup(h.svc.Close)
	return h
}

// readyDraft returns a draft on the AdminAccount step with the given admin values.
func (h *harness) readyDraft(t *testing.T, admin validate.Values) string {
	t.Helper()
	ctx := context.Background()

	v, err := h.svc.Start(ctx)
	require.NoError(t, err)
	_, err = h.svc.Edit(v.ID, validCommunityInfo())
	require.NoError(t, err)
	_, err = h.svc.Advance(ctx, v.ID)
	require.NoError(t, err)
	_, err = h.svc.Edit(v.ID, admin)
	require.NoError(t, err)
	return v.ID
}

func TestService_StartAndLookup(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{})

	v, err := h.svc.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, StepCommunityInfo, v.Step)
	assert.Empty(t, v.Values)

	w, err := h.svc.Lookup(v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, w.ID())

	_, err = h.svc.View("missing")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestService_SubmitInvalidEmailMakesNoCall(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{})
	admin := validAdminAccount()
	admin[validate.AdminEmail] = "not-an-email"
	id := h.readyDraft(t, admin)

	before := testutil.ToFloat64(h.svc.metrics.SubmissionsTotal.WithLabelValues(authclient.UserTypeAdmin, outcomeInvalid))

	view, out, err := h.svc.Submit(context.Background(), id)

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validate.MsgInvalidEmail, view.Errors[validate.AdminEmail])
	assert.False(t, out.Notification.Visible)
	assert.Empty(t, h.collab.calls())
	assert.Equal(t, before+1, testutil.ToFloat64(h.svc.metrics.SubmissionsTotal.WithLabelValues(authclient.UserTypeAdmin, outcomeInvalid)))

	span := h.tel.SpanByName("registration.submit")
	require.NotNil(t, span)
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestService_SubmitFromCommunityInfo(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{})
	v, err := h.svc.Start(context.Background())
	require.NoError(t, err)

	_, _, err = h.svc.Submit(context.Background(), v.ID)
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.Empty(t, h.collab.calls())
}

func TestService_SubmitSuccess(t *testing.T) {
	session := &authclient.Session{AccessToken: "tok", CompanyName: "Springville", UserType: authclient.UserTypeAdmin}
	h := newHarness(t, &fakeCollaborator{session: session})
	id := h.readyDraft(t, validAdminAccount())

	view, out, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, notify.Notification{
		Visible:   true,
		Message:   "Registration successful! Redirecting...",
		Severity:  notify.SeveritySuccess,
		ExpiresAt: testNow.Add(notify.DefaultTTL),
	}, out.Notification)
	assert.Same(t, session, out.Session)
	assert.True(t, view.Completed)
	assert.Equal(t, out.Notification, view.Notification)

	calls := h.collab.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, CommunityPayload(mergeValues(validCommunityInfo(), validAdminAccount())), calls[0])

	_, err = h.svc.View(id)
	assert.ErrorIs(t, err, ErrDraftNotFound, "draft removed after success")

	require.Len(t, h.publisher.events, 1)
	ev := h.publisher.events[0]
	assert.Equal(t, events.TypeRegistrationSucceeded, ev.Type)
	assert.Equal(t, "springville.org", ev.EmailDomain)
	assert.Equal(t, "Springville", ev.Community)

	h.tel.AssertSpanAttribute(t, "registration.submit", "registration.user_type", "admin")
	h.logger.AssertLogged(t, zapcore.InfoLevel, "registration succeeded")
	h.logger.AssertField(t, "registration succeeded", "email", "t***@springville.org")
	h.logger.AssertNoSecrets(t)
}

func TestService_CommunityInfoCannotChangeAfterAdvance(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{session: &authclient.Session{AccessToken: "tok"}})
	id := h.readyDraft(t, validAdminAccount())

	values := mergeValues(validAdminAccount(), validate.Values{
		validate.CommunityName:  "",
		validate.CommunityEmail: "garbage",
	})
	view, err := h.svc.Edit(id, values)
	require.ErrorIs(t, err, ErrWrongStep)
	assert.Equal(t, "Springville", view.Values[validate.CommunityName])

	_, _, err = h.svc.Submit(context.Background(), id)
	require.NoError(t, err)

	calls := h.collab.calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].CompanyName)
	assert.Equal(t, "Springville", *calls[0].CompanyName)
	require.NotNil(t, calls[0].MobileNumber)
	assert.Equal(t, "+27 11 555 0100", *calls[0].MobileNumber)
}

func TestService_SubmitRejected(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{
		err: &authclient.CollaboratorError{Status: 409, Message: "Email already in use"},
	})
	id := h.readyDraft(t, validAdminAccount())

	view, out, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, notify.SeverityError, out.Notification.Severity)
	assert.Equal(t, "Email already in use", out.Notification.Message)
	assert.Nil(t, out.Session)
	assert.False(t, view.Completed)
	assert.False(t, view.Submitting)
	assert.Empty(t, h.publisher.events)

	_, err = h.svc.View(id)
	assert.NoError(t, err, "draft kept for another try")

	h.tel.AssertSpanAttribute(t, "registration.submit", "auth.status", int64(409))
	h.logger.AssertLogged(t, zapcore.WarnLevel, "registration failed")
}

func TestService_SubmitTransportFailureUsesFallback(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{err: errors.New("dial tcp: connection refused")})
	id := h.readyDraft(t, validAdminAccount())

	_, out, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Registration failed. Please try again.", out.Notification.Message)
	assert.Equal(t, notify.SeverityError, out.Notification.Severity)
}

func TestService_SubmitInFlight(t *testing.T) {
	collab := &fakeCollaborator{
		session: &authclient.Session{AccessToken: "tok"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newHarness(t, collab)
	id := h.readyDraft(t, validAdminAccount())

	done := make(chan error, 1)
	go func() {
		_, _, err := h.svc.Submit(context.Background(), id)
		done <- err
	}()
	<-collab.entered

	_, _, err := h.svc.Submit(context.Background(), id)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	view, err := h.svc.View(id)
	require.NoError(t, err)
	assert.True(t, view.Submitting)

	_, err = h.svc.Retreat(id)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(collab.release)
	require.NoError(t, <-done)
	assert.Len(t, collab.calls(), 1)
}

func TestService_PublishFailureIsLogged(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{session: &authclient.Session{AccessToken: "tok"}})
	h.publisher.err = errors.New("nats: connection closed")
	id := h.readyDraft(t, validAdminAccount())

	_, out, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, notify.SeveritySuccess, out.Notification.Severity)
	h.logger.AssertLogged(t, zapcore.WarnLevel, "failed to publish registration event")
}

func TestService_AdvanceCountsOutcomes(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{})
	v, err := h.svc.Start(context.Background())
	require.NoError(t, err)

	invalid := testutil.ToFloat64(h.svc.metrics.AdvanceTotal.WithLabelValues(outcomeInvalid))
	success := testutil.ToFloat64(h.svc.metrics.AdvanceTotal.WithLabelValues(outcomeSuccess))

	_, err = h.svc.Advance(context.Background(), v.ID)
	require.Error(t, err)
	_, err = h.svc.Edit(v.ID, validCommunityInfo())
	require.NoError(t, err)
	view, err := h.svc.Advance(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, StepAdminAccount, view.Step)

	assert.Equal(t, invalid+1, testutil.ToFloat64(h.svc.metrics.AdvanceTotal.WithLabelValues(outcomeInvalid)))
	assert.Equal(t, success+1, testutil.ToFloat64(h.svc.metrics.AdvanceTotal.WithLabelValues(outcomeSuccess)))
}

func TestService_RegisterMember(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{session: &authclient.Session{AccessToken: "tok", UserType: "member"}})

	out, err := h.svc.RegisterMember(context.Background(), validate.Values{
		validate.Name:            "Sarah Chen",
		validate.Email:           "sarah@newtown.example",
		validate.Password:        "12345678",
		validate.ConfirmPassword: "12345678",
	})
	require.NoError(t, err)
	assert.Equal(t, MsgSuccess, out.Notification.Message)
	require.NotNil(t, out.Session)

	calls := h.collab.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "member", calls[0].UserType)
	assert.Equal(t, "Chen", calls[0].Surname)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "member", h.publisher.events[0].UserType)
}

func TestService_RegisterMemberInvalid(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{})

	_, err := h.svc.RegisterMember(context.Background(), validate.Values{
		validate.Name:            "Sarah",
		validate.Email:           "sarah@newtown.example",
		validate.Password:        "short",
		validate.ConfirmPassword: "shorter",
	})

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validate.FieldErrors{
		validate.Password:        validate.MsgPasswordTooShort,
		validate.ConfirmPassword: validate.MsgPasswordMismatch,
	}, verr.Fields)
	assert.Empty(t, h.collab.calls())
}

func TestService_CloseNotification(t *testing.T) {
	h := newHarness(t, &fakeCollaborator{err: &authclient.CollaboratorError{Status: 400, Message: "nope"}})
	id := h.readyDraft(t, validAdminAccount())

	view, _, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)
	require.True(t, view.Notification.Visible)

	view, err = h.svc.CloseNotification(id)
	require.NoError(t, err)
	assert.False(t, view.Notification.Visible)
}

func mergeValues(sets ...validate.Values) validate.Values {
	out := make(validate.Values)
	for _, set := range sets {
		for f, v := range set {
			out[f] = v
		}
	}
	return out
}
