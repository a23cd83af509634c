package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
)

type (
	// Storage reports whether the storage backend could be reached.
	Storage interface {
		Available() bool
	}

	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		Translator   ut.Translator
		Storage      Storage
		QuestionSvc  *question.Service
		AnalyticsSvc *analytics.Service
		UserSvc      *user.Service
		// Verifier authenticates bearer tokens; nil runs the API in open mode.
		Verifier user.TokenVerifier
		// Metrics optionally instruments every request.
		Metrics echo.MiddlewareFunc
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.Conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.Metrics != nil {
		s.app.Use(s.Metrics)
	}
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.GET("/health", s.health)

	api := s.app.Group("/api")

	student := api.Group("/student", s.optionalAuth)
	registerQuestionAPI(student, s.QuestionSvc)
	student.POST("/auth/login", loginStub)

	registerAnalyticsAPI(api.Group("/analytics", s.adminAuth), s.AnalyticsSvc)
}

// Start serves until the server is shut down. Failures are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	srv := &http.Server{
		Addr:         s.Conf.Server.Addr(),
		ReadTimeout:  s.Conf.Server.ReadTimeout,
		WriteTimeout: s.Conf.Server.WriteTimeout,
	}
	s.Logger.Info("API listening on " + srv.Addr)
	if err := s.app.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

// Errors receives the error that stopped the server.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives the signal asking the server to stop.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Storage string `json:"storage"`
}

func (s *Server) health(ctx echo.Context) error {
	storage := "connected"
	if s.Storage == nil || !s.Storage.Available() {
		storage = "unavailable"
	}
	return ctx.JSON(http.StatusOK, healthResponse{
		Status:  "OK",
		Message: s.Conf.AppName + " API is running",
		Storage: storage,
	})
}

func loginStub(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": "STUB: Student login"})
}
