package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/citysmiles/dental-admin/internal/config"
	"github.com/citysmiles/dental-admin/internal/handler/health"
	"github.com/citysmiles/dental-admin/internal/handler/prometheus"
	"github.com/citysmiles/dental-admin/internal/middleware"
	"github.com/citysmiles/dental-admin/internal/remote/postgres"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/messaging/redis"
	"github.com/citysmiles/dental-admin/pkg/metrics"
	"github.com/citysmiles/dental-admin/pkg/worker"
)

// The worker relays database change notifications to redis so API instances
// running with realtime.source=redis see them.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Logging.JSON,
	}).With("component", "relay")
	m := metrics.NewMetrics(cfg.Metrics.Namespace, nil)

	dsn, err := cfg.DSN()
	if err != nil {
		appLog.Fatal(err, "Invalid remote configuration")
	}
	listener, err := postgres.NewListener(dsn, appLog)
	if err != nil {
		appLog.Fatal(err, "Failed to listen for changes")
	}
	defer listener.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &appLog.ZL)
	if err != nil {
		appLog.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	relay := worker.NewRelay(listener, broker, cfg.Relay.ToWorkerConfig(), appLog, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := healthServer(cfg.Relay.HealthPort, appLog, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return relay.Start(gctx) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error(err, "Relay stopped")
	}
	appLog.Info("Shutting down...")
}

func healthServer(port int, appLog *logger.Logger, m *metrics.Metrics) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery(appLog))
	health.NewHandler(nil).RegisterRoutes(engine)
	engine.GET("/metrics", prometheus.New(nil, m).Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
}
