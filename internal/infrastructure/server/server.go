package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/scenemcp/internal/api/http"
	"github.com/GriffinCanCode/scenemcp/internal/api/mcpserver"
	"github.com/GriffinCanCode/scenemcp/internal/api/middleware"
	"github.com/GriffinCanCode/scenemcp/internal/api/ws"
	"github.com/GriffinCanCode/scenemcp/internal/domain/stage"
	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/config"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scenemcp/internal/providers"
	"github.com/GriffinCanCode/scenemcp/internal/providers/system"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
	"github.com/GriffinCanCode/scenemcp/internal/scene/docstore"
)

// Name is reported to MCP clients and on GET /
const Name = "scenemcp"

// Version is overridden at build time with -ldflags "-X ...server.Version=..."
var Version = "0.1.0"

const (
	shutdownTimeout = 10 * time.Second
	maxConnections  = 512
)

// Option customizes a Server
type Option func(*options)

type options struct {
	logger *logging.Logger
	engine scene.Engine
}

// WithLogger replaces the logger built from the configuration
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngine replaces the bundled document store
func WithEngine(e scene.Engine) Option {
	return func(o *options) { o.engine = e }
}

// Server wraps the transports and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	registry   *stage.Registry
	dispatcher *tools.Dispatcher
	system     *system.Provider
	maintainer *stage.Maintainer
	mcp        *mcpserver.Server
	ws         *ws.Handler
	router     *gin.Engine

	closeOnce sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logCfg := logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development}
		if cfg.Server.Transport == config.TransportStdio {
			logCfg = logging.StdioConfig(cfg.Logging.Level, cfg.Logging.Development)
		}
		l, err := logging.New(logCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l
	}
	engine := o.engine
	if engine == nil {
		engine = docstore.New()
	}

	logger.Info("Initializing scene tool server",
		zap.String("version", Version),
		zap.String("transport", cfg.Server.Transport),
		zap.Int("cache_size", cfg.Stage.CacheSize),
		zap.Duration("maintenance_interval", cfg.Stage.MaintenanceInterval),
	)

	metrics := monitoring.NewMetrics()

	breaker := resilience.New("stage-flush", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	registry := stage.NewRegistry(
		stage.WithMaxEntries(cfg.Stage.CacheSize),
		stage.WithFlushTimeout(cfg.Stage.FlushTimeout),
		stage.WithLogger(logger.Component("stage")),
		stage.WithMetrics(metrics),
		stage.WithBreaker(breaker),
	)

	sys := system.NewProvider(Version, registry, metrics)
	dispatcher := tools.New(tools.Config{
		Registry:     registry,
		Engine:       engine,
		Logger:       logger.Logger,
		Metrics:      metrics,
		Journal:      sys,
		FlushTimeout: cfg.Stage.FlushTimeout,
	})
	if err := providers.RegisterAll(dispatcher, sys); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	logger.Info("Tools registered", zap.Int("count", len(dispatcher.Tools())))

	s := &Server{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		registry:   registry,
		dispatcher: dispatcher,
		system:     sys,
		maintainer: stage.NewMaintainer(registry, cfg.Stage.MaintenanceInterval, logger.Component("maintenance"), metrics),
		mcp:        mcpserver.New(dispatcher, Name, Version, logger.Logger),
		ws:         ws.NewHandler(dispatcher, metrics, logger.Logger),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.AccessLog(s.logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
		rl.Burst = s.config.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(Name, Version, s.dispatcher, s.system, s.registry, s.logger.Logger)
	apihttp.RegisterRoutes(router, handlers)

	router.GET("/ws", s.ws.HandleConnection)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	mcpHandler := gin.WrapH(s.mcp.Handler())
	router.GET("/mcp", mcpHandler)
	router.POST("/mcp", mcpHandler)
	router.DELETE("/mcp", mcpHandler)

	return router
}

// Handler returns the HTTP router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Dispatcher returns the tool dispatcher
func (s *Server) Dispatcher() *tools.Dispatcher {
	return s.dispatcher
}

// Registry returns the stage registry
func (s *Server) Registry() *stage.Registry {
	return s.registry
}

// Run serves the configured transport and the maintenance scheduler until
// ctx is cancelled or the transport stops, then closes every open stage.
func (s *Server) Run(ctx context.Context) error {
	switch s.config.Server.Transport {
	case config.TransportHTTP:
		addr := s.config.Server.Addr()
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		return s.Serve(ctx, ln)
	default:
		return s.run(ctx, func(ctx context.Context) error {
			return s.mcp.RunStdio(ctx)
		})
	}
}

// Serve answers HTTP on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln = netutil.LimitListener(ln, maxConnections)
	return s.run(ctx, func(ctx context.Context) error {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Serve(ln)
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		s.ws.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
			_ = srv.Close()
		}
		<-errCh
		s.logger.Info("HTTP server stopped")
		return nil
	})
}

// run pairs a transport with the scheduler; whichever stops first stops both
func (s *Server) run(ctx context.Context, transport func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.maintainer.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return transport(ctx)
	})

	err := g.Wait()
	s.closeStages()
	return err
}

func (s *Server) closeStages() {
	if s.registry.Len() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Stage.FlushTimeout*time.Duration(s.registry.Len()+1))
	defer cancel()
	n := s.registry.CloseAll(ctx)
	s.logger.Info("Closed open stages", zap.Int("count", n))
}

// Close flushes any stage still open and syncs the logger
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")
		s.ws.Shutdown()
		s.closeStages()
		s.logger.Close()
	})
	return nil
}
