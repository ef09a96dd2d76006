package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/lifescribe/auth"
	"github.com/kbukum/lifescribe/component"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/observability"
)

// Server is the HTTP server for the transcript API, backed by Gin and
// served over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	metrics *observability.Metrics
	health  HealthChecker
}

// WithMetrics records request counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithHealth reports component health on /health.
func WithHealth(h HealthChecker) Option {
	return func(o *serverOptions) { o.health = h }
}

// New creates a Server exposing store. It fails when a JWT secret is set but
// unusable.
func New(cfg Config, store TranscriptStore, log *logger.Logger, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var tokens *auth.Service
	if cfg.Auth.Enabled() {
		svc, err := auth.NewService(cfg.Auth)
		if err != nil {
			return nil, err
		}
		tokens = svc
	}

	log = log.WithComponent("api")
	engine := gin.New()
	engine.Use(Recovery(log), RequestID(), CORS(&cfg.CORS), BodySizeLimit(cfg.MaxBodySize), RequestLogger(log), Metrics(o.metrics))

	h := &handlers{store: store, log: log}
	engine.GET("/health", Health(o.health))
	routes := engine.Group("/api")
	routes.GET("/transcripts/latest", h.latest)
	routes.GET("/transcripts/:id/conversation", h.conversation)

	write := routes.Group("")
	if tokens != nil {
		write.Use(Auth(tokens))
	}
	write.PUT("/transcripts/:id", h.update)
	write.POST("/speakers/rename", h.renameSpeaker)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      h2c.NewHandler(engine, h2s),
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
		},
		engine: engine,
		config: cfg,
		log:    log,
	}, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("api failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("api listening", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown error: %w", err)
	}
	s.log.Info("api shut down")
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

var (
	_ component.Component   = (*Server)(nil)
	_ component.Describable = (*Server)(nil)
)

// Name implements component.Component.
func (s *Server) Name() string { return "api" }

// Health implements component.Component.
func (s *Server) Health(context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (s *Server) Describe() component.Description {
	details := s.config.Addr()
	if s.config.Auth.Enabled() {
		details += " (jwt)"
	}
	return component.Description{Name: "Transcript API", Type: "http", Details: details}
}
