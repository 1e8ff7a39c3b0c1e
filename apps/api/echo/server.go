package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/media"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/review"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/core/user"
	"github.com/trezcool/khidmat/services/metrics"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Cache      core.Cache
	Metrics    *metrics.Metrics // optional
	Dictionary *i18n.Dictionary

	UserSvc    user.ServiceInterface
	Offerings  *offering.Manager
	Blogs      *blog.Manager
	FAQs       *faq.Manager
	About      *page.AboutManager
	Statistics *page.StatisticManager
	Reviews    *review.Service
	Contacts   *contact.Service
	Media      *media.Service
	Fanout     *translation.Fanout
	Reconciler *translation.Reconciler

	// HealthCheck reports whether the backing stores are reachable; optional.
	HealthCheck func(ctx context.Context) error
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	auth     *Auth
	limiter  *ipLimiter
	errors   chan error
	shutdown chan os.Signal
}

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuth(deps.Conf),
		limiter:  newIPLimiter(deps.Conf.Server.FormRateLimit, deps.Conf.Server.FormRateBurst),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if deps.Reconciler != nil {
		deps.Reconciler.OnFixed(s.invalidateNamespaces)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.INFO)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(conf.Server.AllowedOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedOrigins}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.healthz)

	api := s.app.Group("/api")
	api.GET("/languages", s.languages)

	jwt := s.auth.Middleware()
	admin := api.Group("/admin")
	registerUserAPI(admin, jwt, s)
	registerContentAdminAPI(admin.Group("", jwt, adminMiddleware()), s)

	public := api.Group("/:lang", langMiddleware)
	registerPublicAPI(public, s)
}

// Start runs the server until it is shut down. Startup errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *Server) healthz(ctx echo.Context) error {
	if s.deps.HealthCheck != nil {
		if err := s.deps.HealthCheck(ctx.Request().Context()); err != nil {
			s.deps.Logger.Warn("health check failed", err)
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.deps.Conf.Build})
}

// languages lists the supported languages and the one negotiated for the visitor.
func (s *Server) languages(ctx echo.Context) error {
	lang, persist := i18n.Resolve(ctx.Request(), "")
	if persist {
		i18n.SetCookie(ctx.Response(), lang)
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"current":   lang,
		"dir":       lang.Direction(),
		"languages": i18n.Infos(),
	})
}
