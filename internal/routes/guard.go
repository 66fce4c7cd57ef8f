package routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/communicare/portal/internal/viewer"
)

const (
	// LoginPath is where visitors without a session are sent.
	LoginPath = "/login"
	// HomePath is where signed-in viewers are sent from auth pages.
	HomePath = "/dashboard"
)

// GuardConfig configures Guard.
type GuardConfig struct {
	// Skipper excludes requests from the guard. The default skips API,
	// health and metrics endpoints.
	Skipper middleware.Skipper
}

// DefaultSkipper skips everything that is not a page.
func DefaultSkipper(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/api/") || p == "/healthz" || p == "/metrics"
}

// Guard returns middleware that redirects visitors without a session away
// from private pages to LoginPath, and signed-in viewers away from auth
// pages to HomePath. Every other request passes through.
func Guard() echo.MiddlewareFunc {
	return GuardWithConfig(GuardConfig{})
}

// GuardWithConfig returns Guard with a custom configuration.
func GuardWithConfig(cfg GuardConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			p := c.Request().URL.Path
			loggedIn := viewer.FromRequest(c.Request()).LoggedIn()

			switch {
			case !loggedIn && Classify(p) == Private:
				return c.Redirect(http.StatusFound, LoginPath)
			case loggedIn && IsAuthPage(p):
				return c.Redirect(http.StatusFound, HomePath)
			}
			return next(c)
		}
	}
}
