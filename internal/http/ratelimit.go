package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/communicare/portal/internal/logging"
)

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
	limit       rate.Limit
	burst       int
	now         func() time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		now:         time.Now,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop every bucket once an hour so the map cannot grow without bound.
	if l.now().Sub(l.lastCleanup) > time.Hour {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = l.now()
	}

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// middleware rejects requests beyond the client's budget with 429.
func (l *ipLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !l.get(ip).Allow() {
				ctx := c.Request().Context()
				logging.FromContext(ctx).Warn(ctx, "rate limit exceeded",
					zap.String("ip", ip),
					zap.String("path", c.Path()))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, please wait and try again")
			}
			return next(c)
		}
	}
}
