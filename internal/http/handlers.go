package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/drafts"
	"github.com/communicare/portal/internal/logging"
	"github.com/communicare/portal/internal/notify"
	"github.com/communicare/portal/internal/registration"
	"github.com/communicare/portal/internal/routes"
	"github.com/communicare/portal/internal/validate"
	"github.com/communicare/portal/internal/viewer"
)

// EditRequest is the body of PATCH /api/v1/register/community/:id. Either
// Field and Value or Fields is set.
type EditRequest struct {
	Field  string            `json:"field"`
	Value  string            `json:"value"`
	Fields map[string]string `json:"fields"`
}

// SubmitResponse is the body returned by the submit endpoint.
type SubmitResponse struct {
	Draft        registration.View   `json:"draft"`
	Notification notify.Notification `json:"notification"`
}

// MemberRequest is the body of POST /api/v1/register/member.
type MemberRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the body of POST /api/v1/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OutcomeResponse is returned by the single-step forms.
type OutcomeResponse struct {
	Notification notify.Notification `json:"notification"`
}

// ValidationResponse is returned with 422 by the single-step forms.
type ValidationResponse struct {
	Message string               `json:"message"`
	Errors  validate.FieldErrors `json:"errors"`
}

// ClassifyResponse is the body of GET /api/v1/routes/classify.
type ClassifyResponse struct {
	Path  string       `json:"path"`
	Class routes.Class `json:"class"`
}

// PageResponse describes a page for the renderer.
type PageResponse struct {
	Path   string        `json:"path"`
	Class  routes.Class  `json:"class"`
	Header viewer.Header `json:"header"`
}

func (s *Server) handleSite(c echo.Context) error {
	return c.JSON(http.StatusOK, s.content)
}

func (s *Server) handleHeader(c echo.Context) error {
	return c.JSON(http.StatusOK, viewer.HeaderFor(viewer.FromRequest(c.Request())))
}

func (s *Server) handleRoutes(c echo.Context) error {
	return c.JSON(http.StatusOK, routes.Lists())
}

func (s *Server) handleClassify(c echo.Context) error {
	p := c.QueryParam("path")
	if p == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path query parameter is required")
	}
	return c.JSON(http.StatusOK, ClassifyResponse{Path: routes.Normalize(p), Class: routes.Classify(p)})
}

func (s *Server) handlePage(c echo.Context) error {
	p := routes.Normalize(c.Request().URL.Path)
	return c.JSON(http.StatusOK, PageResponse{
		Path:   p,
		Class:  routes.Classify(p),
		Header: viewer.HeaderFor(viewer.FromRequest(c.Request())),
	})
}

func (s *Server) handleStartCommunity(c echo.Context) error {
	ctx := logging.WithFlow(c.Request().Context(), logging.FlowCommunityRegistration)
	view, err := s.registration.Start(ctx)
	if err != nil {
		return s.draftFailure(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (s *Server) handleGetCommunity(c echo.Context) error {
	view, err := s.registration.View(c.Param("id"))
	if err != nil {
		return s.draftFailure(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleEditCommunity(c echo.Context) error {
	var req EditRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	values := make(validate.Values, len(req.Fields)+1)
	for f, v := range req.Fields {
		values[validate.Field(f)] = v
	}
	if req.Field != "" {
		values[validate.Field(req.Field)] = req.Value
	}
	if len(values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "field or fields is required")
	}

	view, err := s.registration.Edit(c.Param("id"), values)
	return s.respondDraft(c, view, err)
}

func (s *Server) handleAdvanceCommunity(c echo.Context) error {
	view, err := s.registration.Advance(c.Request().Context(), c.Param("id"))
	return s.respondDraft(c, view, err)
}

func (s *Server) handleRetreatCommunity(c echo.Context) error {
	view, err := s.registration.Retreat(c.Param("id"))
	return s.respondDraft(c, view, err)
}

func (s *Server) handleCloseNotification(c echo.Context) error {
	view, err := s.registration.CloseNotification(c.Param("id"))
	return s.respondDraft(c, view, err)
}

func (s *Server) handleSubmitCommunity(c echo.Context) error {
	view, out, err := s.registration.Submit(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.respondDraft(c, view, err)
	}
	s.setSession(c, out.Session)
	return c.JSON(http.StatusOK, SubmitResponse{Draft: view, Notification: out.Notification})
}

func (s *Server) handleRegisterMember(c echo.Context) error {
	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := s.registration.RegisterMember(c.Request().Context(), validate.Values{
		validate.Name:            req.Name,
		validate.Email:           req.Email,
		validate.Password:        req.Password,
		validate.ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return formError(c, err)
	}
	s.setSession(c, out.Session)
	return c.JSON(http.StatusOK, OutcomeResponse{Notification: out.Notification})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := s.login.Login(c.Request().Context(), validate.Values{
		validate.Email:    req.Email,
		validate.Password: req.Password,
	})
	if err != nil {
		return formError(c, err)
	}
	s.setSession(c, out.Session)
	return c.JSON(http.StatusOK, OutcomeResponse{Notification: out.Notification})
}

// handleLogout ends the provider session and always clears the cookies.
func (s *Server) handleLogout(c echo.Context) error {
	v := viewer.FromRequest(c.Request())
	s.login.Logout(c.Request().Context(), v.AccessToken)
	for _, cookie := range viewer.ClearCookies(s.config.Cookies) {
		c.SetCookie(cookie)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setSession(c echo.Context, session *authclient.Session) {
	if session == nil {
		return
	}
	for _, cookie := range viewer.SessionCookies(session, s.config.Cookies) {
		c.SetCookie(cookie)
	}
}

// respondDraft writes view with the status matching err. Validation
// failures still carry the draft so the form can show its errors.
func (s *Server) respondDraft(c echo.Context, view registration.View, err error) error {
	var verr *validate.Error
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, view)
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, view)
	default:
		return s.draftFailure(c, err)
	}
}

// draftFailure maps a draft error to its HTTP error, logging the unexpected ones.
func (s *Server) draftFailure(c echo.Context, err error) error {
	if herr := draftError(err); herr != nil {
		return herr
	}
	ctx := c.Request().Context()
	s.logger.Error(ctx, "draft operation failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func formError(c echo.Context, err error) error {
	var verr *validate.Error
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Message: "validation failed",
			Errors:  verr.Fields,
		})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

// draftError maps draft and wizard errors to HTTP errors. Unknown errors map to nil.
func draftError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, registration.ErrDraftNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "draft not found")
	case errors.Is(err, registration.ErrSubmissionInFlight):
		return echo.NewHTTPError(http.StatusConflict, "a submission is already in progress")
	case errors.Is(err, registration.ErrCompleted):
		return echo.NewHTTPError(http.StatusConflict, "registration already completed")
	case errors.Is(err, registration.ErrWrongStep):
		return echo.NewHTTPError(http.StatusConflict, "not allowed on the current step")
	case errors.Is(err, registration.ErrUnknownField):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, drafts.ErrStoreFull), errors.Is(err, drafts.ErrClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many registrations in progress, try again later")
	}
	return nil
}
