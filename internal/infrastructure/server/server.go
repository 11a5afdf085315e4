// Package server assembles the builder's services behind one gin router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/uibuilder/internal/api/http"
	"github.com/GriffinCanCode/uibuilder/internal/api/middleware"
	"github.com/GriffinCanCode/uibuilder/internal/api/ws"
	"github.com/GriffinCanCode/uibuilder/internal/domain/catalog"
	"github.com/GriffinCanCode/uibuilder/internal/domain/generation"
	"github.com/GriffinCanCode/uibuilder/internal/domain/normalizer"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/refine"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/config"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/events"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/logging"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/uibuilder/internal/providers/llm"
	"github.com/GriffinCanCode/uibuilder/internal/providers/sandbox"
	"github.com/GriffinCanCode/uibuilder/internal/storage"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	stop      context.CancelFunc
	store     storage.Store
	publisher events.Publisher
	harness   *sandbox.Harness
	tracer    *tracing.Tracer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer wires every service from cfg. The workspace is loaded from
// the store before the router is built.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger.Info("Initializing UI builder",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("llm", cfg.LLM.BaseURL),
		zap.String("model", cfg.LLM.Model),
		zap.String("storage", cfg.Storage.Backend),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)
	tracer := tracing.New("uibuilder", logger.Logger)

	store, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.Storage.Backend,
		RedisURL:    cfg.Storage.RedisURL,
		PostgresDSN: cfg.Storage.PostgresDSN,
		Namespace:   cfg.Storage.Namespace,
	}, logger.Logger)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	publisher := openPublisher(cfg.Events, logger)

	cleanup := func() {
		tracer.Close()
		_ = publisher.Close()
		_ = store.Close()
	}

	client := llm.New(llm.Options{
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		Timeout:      cfg.LLM.Timeout,
		ProbeTimeout: cfg.LLM.ProbeTimeout,
		Temperature:  cfg.LLM.Temperature,
		NumPredict:   cfg.LLM.NumPredict,
		TopP:         cfg.LLM.TopP,
		Stop:         cfg.LLM.Stop,
		MaxRetries:   cfg.LLM.MaxRetries,
		RateLimit:    cfg.LLM.RateLimit,
	}, logger.Logger).WithMetrics(metrics)

	norm, err := normalizer.New(cfg.Cache.NormalizerSize, logger.Logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	norm.WithMetrics(metrics)

	composer, err := preview.NewComposer(cfg.Cache.DocumentSize, logger.Logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	composer.WithMetrics(metrics)
	surface := preview.NewSurface(composer)

	space := workspace.New(store, workspace.Options{Publisher: publisher}, logger.Logger)
	if err := space.Load(ctx); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	genOpts := generation.Options{Publisher: publisher, Metrics: metrics}
	var harness *sandbox.Harness
	if cfg.Preview.VerifyScripts {
		harness = sandbox.New(cfg.Preview.SandboxPoolSize, cfg.Preview.SandboxTimeout, logger.Logger).WithMetrics(metrics)
		genOpts.Verifier = harness
	}
	generator := generation.NewService(client, norm, space, genOpts, logger.Logger)

	gallery, err := catalog.LoadGallery(ctx, cfg.Templates.Dir, cfg.Templates.Pattern, logger.Logger)
	if err != nil {
		logger.Warn("Template gallery unavailable", zap.Error(err))
		gallery = catalog.NewGallery()
	}
	logger.Info("Template gallery loaded", zap.Int("templates", gallery.Len()))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Logger))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	handlers := apihttp.NewHandlers(apihttp.Dependencies{
		LLM:        client,
		Generator:  generator,
		Refiner:    refine.NewService(client, norm, refine.Options{}, logger.Logger),
		Normalizer: norm,
		Workspace:  space,
		Surface:    surface,
		Harness:    harness,
		Catalog:    catalog.New(store, publisher, logger.Logger),
		Gallery:    gallery,
		Publisher:  publisher,
		Metrics:    metrics,
		Breakpoints: preview.Breakpoints{
			Mobile: cfg.Preview.MobileWidth,
			Tablet: cfg.Preview.TabletWidth,
		},
		Logger: logger.Logger,
	})
	wsHandler := ws.NewHandler(generator, space, surface, logger.Logger).WithMetrics(metrics)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	router.GET("/stream", wsHandler.HandleConnection)
	handlers.Register(router)

	// Background work outlives the constructor's ctx and stops on Close.
	bg, stop := context.WithCancel(context.Background())
	go space.Mirror(bg, surface)
	go metrics.Run(bg.Done())

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		stop:      stop,
		store:     store,
		publisher: publisher,
		harness:   harness,
		tracer:    tracer,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// openPublisher connects to NATS when a URL is configured. A broker that
// cannot be reached disables publishing rather than failing startup.
func openPublisher(cfg config.EventsConfig, logger *logging.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.Nop{}
	}
	pub, err := events.ConnectNATS(cfg.URL, cfg.SubjectPrefix, logger.Logger)
	if err != nil {
		logger.Warn("Event publishing disabled", zap.String("url", cfg.URL), zap.Error(err))
		return events.Nop{}
	}
	logger.Info("Publishing events", zap.String("url", cfg.URL), zap.String("prefix", cfg.SubjectPrefix))
	return pub
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

// Close releases the store, the broker connection and the sandbox pool.
func (s *Server) Close() error {
	s.stop()
	if s.harness != nil {
		s.harness.Close()
	}
	s.tracer.Close()

	var errs []error
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
