package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/store"
	oahusync "github.com/existflow/oahu/internal/sync"
)

// Options configure the mirror server
type Options struct {
	// Token, when set, is required as a bearer token on /api routes
	Token string
}

// Server exposes the local cache over HTTP
type Server struct {
	repo   *store.Repo
	engine *oahusync.Engine
	token  string
	log    *logger.Logger
	echo   *echo.Echo
}

// New creates a new server
func New(repo *store.Repo, engine *oahusync.Engine, opts Options, log *logger.Logger) *Server {
	s := &Server{
		repo:   repo,
		engine: engine,
		token:  opts.Token,
		log:    log.WithFields(logger.F("component", "server")),
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(s.requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	api := e.Group("/api/v1")
	api.Use(s.authMiddleware)
	api.GET("/kinds", s.handleKinds)
	api.GET("/:kind", s.handleList)
	api.GET("/:kind/:id", s.handleGet)
	api.GET("/:kind/by/:key/:value", s.handleFindBy)
	api.POST("/:kind/:id/sync", s.handleSync)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	s.log.Info("Mirror server starting", logger.F("addr", addr))
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError renders every failure as {"error": "..."} with a status
// derived from the error kind
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrUnrecognizedKind), errors.Is(err, errs.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrTransport):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed",
			logger.F("uri", c.Request().RequestURI),
			logger.F("status", status),
			logger.F("error", err))
	}
	if err := c.JSON(status, map[string]string{"error": msg}); err != nil {
		s.log.Warn("Failed to write error response", logger.F("error", err))
	}
}
