package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/zou/appbridge/internal/api/http"
	"github.com/zou/appbridge/internal/api/middleware"
	"github.com/zou/appbridge/internal/api/ws"
	"github.com/zou/appbridge/internal/bridge"
	"github.com/zou/appbridge/internal/infrastructure/config"
	"github.com/zou/appbridge/internal/infrastructure/logging"
	"github.com/zou/appbridge/internal/infrastructure/monitoring"
	"github.com/zou/appbridge/internal/infrastructure/resilience"
	"github.com/zou/appbridge/internal/infrastructure/tracing"
	"github.com/zou/appbridge/internal/providers/apps"
)

// Version is reported by GET /
var Version = "dev"

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	registry   apps.Registry
	breaker    *resilience.Breaker
	dispatcher *bridge.Dispatcher
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a server with the registry backend named in cfg
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	registry, err := BuildRegistry(cfg.Registry, logger)
	if err != nil {
		return nil, err
	}
	return NewWithRegistry(cfg, logger, registry)
}

// BuildRegistry constructs the configured registry backend
func BuildRegistry(cfg config.RegistryConfig, logger *logging.Logger) (apps.Registry, error) {
	log := logger.Named("registry").Logger

	switch cfg.Backend {
	case "desktop":
		r, err := apps.NewDesktopRegistry(apps.DesktopOptions{
			Dirs:    cfg.AppDirs,
			Pattern: cfg.Pattern,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create desktop registry: %w", err)
		}
		return r, nil
	case "catalog":
		r, err := apps.NewCatalogRegistry(cfg.Catalog, nil, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog registry: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}

// NewWithRegistry creates a server around an existing registry
func NewWithRegistry(cfg *config.Config, logger *logging.Logger, registry apps.Registry) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Initializing appbridge server",
		zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("channel", cfg.Bridge.Channel),
		zap.String("registry", cfg.Registry.Backend),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("appbridge", logger.Logger)

	var breaker *resilience.Breaker
	if cfg.Breaker.Enabled {
		breaker = resilience.New("registry", resilience.Settings{
			Timeout:     cfg.Breaker.OpenTimeout,
			ReadyToTrip: resilience.ConsecutiveFailures(cfg.Breaker.ConsecutiveFailures),
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				metrics.SetBreakerState(name, int(to))
			},
		})
		metrics.SetBreakerState(breaker.Name(), int(resilience.StateClosed))
		registry = apps.NewGuarded(registry, breaker)
	}

	dispatcher := bridge.New(registry, bridge.Options{
		CallTimeout: cfg.Bridge.CallTimeout,
		Logger:      logger,
		Metrics:     metrics,
	})

	var lister apps.Lister
	if l, ok := registry.(apps.Lister); ok {
		lister = l
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Named("http").Logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitFromConfig(cfg.RateLimit)))
	}

	handlers := apihttp.NewHandlers(dispatcher, apihttp.Options{
		Channel: cfg.Bridge.Channel,
		Lister:  lister,
		Breaker: breaker,
		Metrics: metrics,
		Logger:  logger.Named("http").Logger,
		Version: Version,
	})
	wsHandler := ws.NewHandler(dispatcher, ws.Options{
		Channel: cfg.Bridge.Channel,
		Metrics: metrics,
		Logger:  logger.Named("ws").Logger,
	})

	handlers.Register(router)
	wsHandler.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	var handler http.Handler = router
	if cfg.Server.Gzip {
		handler = gzhttp.GzipHandler(router)
	}

	s := &Server{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		registry:   registry,
		breaker:    breaker,
		dispatcher: dispatcher,
		router:     router,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Dispatcher returns the channel dispatcher
func (s *Server) Dispatcher() *bridge.Dispatcher {
	return s.dispatcher
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases background resources
func (s *Server) Close() error {
	s.tracer.Close()
	_ = s.logger.Sync()
	return nil
}
