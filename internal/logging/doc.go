// Package logging provides structured logging for the portal.
//
// Logger wraps Zap with context-aware methods that attach the request ID,
// the form flow and the wizard draft ID carried on the context:
//
//	ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
//	ctx = logging.WithFlow(ctx, logging.FlowCommunityRegistration)
//	ctx = logging.WithDraftID(ctx, draft.ID)
//	logger.Info(ctx, "registration submitted", logging.Email("email", form.Email))
//
// Output can go to stdout, to an OpenTelemetry log provider, or both.
// The stdout encoder redacts credential fields (password, confirm_password,
// access_token, api_key) by name and bearer tokens by pattern, so a form
// that is logged by mistake still never writes a password.
//
// Below Error, entries are sampled once per tick. Errors are never sampled.
//
// Tests use TestLogger, which records entries for assertions:
//
//	tl := logging.NewTestLogger()
//	svc := registration.NewWizard(..., tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "registration submitted")
//	tl.AssertNoSecrets(t)
package logging
