package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/services/metrics"
)

const contextLangKey = "lang"

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// langMiddleware resolves the language of the public routes. Unsupported path languages are not found.
func langMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		lang, err := i18n.Parse(ctx.Param(i18n.Param))
		if err != nil {
			return errHttpNotFound
		}
		ctx.Set(contextLangKey, lang)
		ctx.Response().Header().Set("Content-Language", string(lang))
		return next(ctx)
	}
}

func contextLang(ctx echo.Context) i18n.Lang {
	if lang, ok := ctx.Get(contextLangKey).(i18n.Lang); ok {
		return lang
	}
	lang, _ := i18n.Resolve(ctx.Request(), "")
	return lang
}

// ipLimiter rate limits the public forms per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	visitorTTL        = 10 * time.Minute
	visitorsSweepSize = 10000
)

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*visitor),
		rate:     limit,
		burst:    burst,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.limiters) >= visitorsSweepSize {
		for key, v := range l.limiters {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.limiters, key)
			}
		}
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !l.allow(ctx.RealIP()) {
			return errTooManyRequests
		}
		return next(ctx)
	}
}

func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			done := m.RequestStarted()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				status = errorStatus(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			done(ctx.Request().Method, route, status)
			return err
		}
	}
}
