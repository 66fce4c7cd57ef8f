// Package http serves the portal API: landing content, the viewer header,
// route classification, community and member registration, login and logout.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/communicare/portal/internal/login"
	"github.com/communicare/portal/internal/logging"
	"github.com/communicare/portal/internal/registration"
	"github.com/communicare/portal/internal/routes"
	"github.com/communicare/portal/internal/site"
	"github.com/communicare/portal/internal/telemetry"
	"github.com/communicare/portal/internal/viewer"
)

// Server provides the portal HTTP endpoints.
type Server struct {
	echo         *echo.Echo
	logger       *logging.Logger
	config       *Config
	registration *registration.Service
	login        *login.Service
	content      *site.Content
	telemetry    *telemetry.Telemetry
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Cookies are the attributes of the session cookies.
	Cookies viewer.CookieOptions

	// RateLimit bounds login and registration attempts per client IP.
	// A zero rate disables the limiter.
	RateLimit      float64
	RateLimitBurst int
}

// Deps are the services behind the endpoints.
type Deps struct {
	Registration *registration.Service
	Login        *login.Service
	Content      *site.Content
	Logger       *logging.Logger
	// Telemetry is optional. When set, /health reports its state.
	Telemetry *telemetry.Telemetry
	// Metrics is optional.
	Metrics *HTTPMetrics
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, cfg *Config) (*Server, error) {
	if deps.Registration == nil {
		return nil, fmt.Errorf("registration service cannot be nil")
	}
	if deps.Login == nil {
		return nil, fmt.Errorf("login service cannot be nil")
	}
	if deps.Content == nil {
		return nil, fmt.Errorf("site content cannot be nil")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:         e,
		logger:       deps.Logger,
		config:       cfg,
		registration: deps.Registration,
		login:        deps.Login,
		content:      deps.Content,
		telemetry:    deps.Telemetry,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	if deps.Metrics != nil {
		e.Use(deps.Metrics.MetricsMiddleware())
	}
	e.Use(routes.Guard())

	s.registerRoutes()
	return s, nil
}

// requestLogger attaches the request ID and logger to the request context
// and logs every request once it completes.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			ctx = logging.WithLogger(ctx, s.logger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/site", s.handleSite)
	v1.GET("/header", s.handleHeader)
	v1.GET("/routes", s.handleRoutes)
	v1.GET("/routes/classify", s.handleClassify)

	var limit []echo.MiddlewareFunc
	if s.config.RateLimit > 0 {
		limiter := newIPLimiter(s.config.RateLimit, s.config.RateLimitBurst)
		limit = append(limit, limiter.middleware())
	}

	community := v1.Group("/register/community")
	community.POST("", s.handleStartCommunity)
	community.GET("/:id", s.handleGetCommunity)
	community.PATCH("/:id", s.handleEditCommunity)
	community.POST("/:id/advance", s.handleAdvanceCommunity)
	community.POST("/:id/retreat", s.handleRetreatCommunity)
	community.POST("/:id/submit", s.handleSubmitCommunity, limit...)
	community.DELETE("/:id/notification", s.handleCloseNotification)

	v1.POST("/register/member", s.handleRegisterMember, limit...)
	v1.POST("/login", s.handleLogin, limit...)
	v1.POST("/logout", s.handleLogout)

	// Pages are rendered elsewhere; the portal answers with their context so
	// the guard and the header stay server-side.
	s.echo.GET("/*", s.handlePage)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// handleHealth reports "ok", or "degraded" when telemetry export is failing.
// Degraded telemetry never makes the portal unhealthy.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if s.telemetry != nil {
		h := s.telemetry.Health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
