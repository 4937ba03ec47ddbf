package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/access"
	"github.com/nihongowithmoeno/moeno/core/blog"
	"github.com/nihongowithmoeno/moeno/core/contact"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/student"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
	"github.com/nihongowithmoeno/moeno/metrics"
)

type (
	Options struct {
		Address        string
		AppName        string
		Build          string
		SecretKey      string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool

		Logger         core.Logger
		Translator     ut.Translator
		SignalShutdown func()

		StudentSvc  *student.Service
		WaitlistSvc *waitlist.Service
		BlogSvc     *blog.Service
		ContactSvc  *contact.Service
		AccessSvc   *access.Service
		Dispatcher  *dispatch.Dispatcher
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/health", s.health)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := s.app.Group("/api")
	authn := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(newJWTConfig(s.opts.SecretKey)),
		sessionMiddleware(s.opts.AccessSvc),
	}
	admin := append(authn[:len(authn):len(authn)], adminMiddleware)

	registerSessionAPI(api, authn, s.opts.AccessSvc, s.opts.AppName, s.opts.SecretKey)
	registerStudentAPI(api, authn, admin, s.opts.StudentSvc)
	registerWaitlistAPI(api, admin, s.opts.WaitlistSvc)
	registerBlogAPI(api, admin, s.opts.BlogSvc)
	registerEmailAPI(api, admin, s.opts.Dispatcher)
	registerContactAPI(api, s.opts.ContactSvc)
}

// Start blocks until the server stops; a graceful Stop is not an error.
func (s *server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) health(ctx echo.Context) error {
	return ok(ctx, http.StatusOK, echo.Map{"status": "ok", "build": s.opts.Build})
}

// successResponse is the success half of the envelope.
type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func ok(ctx echo.Context, code int, data interface{}, message ...string) error {
	resp := successResponse{Success: true, Data: data}
	if len(message) > 0 {
		resp.Message = message[0]
	}
	return ctx.JSON(code, resp)
}
