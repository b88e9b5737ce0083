package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"scriptstudio/internal/config"
	"scriptstudio/internal/credential"
	"scriptstudio/internal/document"
	"scriptstudio/internal/orchestrator"
	"scriptstudio/internal/session"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 120 * time.Second
	idleTimeout         = 120 * time.Second
)

// Server is the loopback HTTP surface the desktop shell talks to.
type Server struct {
	cfg     config.Config
	orch    *orchestrator.Orchestrator
	creds   credential.Store
	doc     *document.Buffer
	session *session.Session
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, orch *orchestrator.Orchestrator, creds credential.Store, doc *document.Buffer, sess *session.Session) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator must not be nil")
	}
	if creds == nil {
		return nil, errors.New("credential store must not be nil")
	}
	if doc == nil || sess == nil {
		return nil, errors.New("document buffer and session must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))

	srv := &Server{
		cfg:     cfg,
		orch:    orch,
		creds:   creds,
		doc:     doc,
		session: sess,
		app:     e,
		address: fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/models", s.handleListModels)
	s.app.PUT("/v1/credentials/:provider", s.handleSetCredential)
	s.app.POST("/v1/credentials/:provider/validate", s.handleValidateCredential)
	s.app.GET("/v1/document", s.handleGetDocument)
	s.app.PUT("/v1/document", s.handleReplaceDocument)
	s.app.GET("/v1/session/turns", s.handleListTurns)
	s.app.POST("/v1/session/messages", s.handleSubmitMessage)
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("scriptstudio backend ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /v1/models")
	fmt.Println("  PUT  /v1/credentials/:provider")
	fmt.Println("  POST /v1/credentials/:provider/validate")
	fmt.Println("  GET  /v1/document")
	fmt.Println("  PUT  /v1/document")
	fmt.Println("  GET  /v1/session/turns")
	fmt.Println("  POST /v1/session/messages")
	fmt.Println("The editor shell connects here; no remote clients are expected.")
	fmt.Println()
}
