package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/citysmiles/dental-admin/internal/config"
	"github.com/citysmiles/dental-admin/internal/handler"
	appointmentHandler "github.com/citysmiles/dental-admin/internal/handler/appointment"
	dashboardHandler "github.com/citysmiles/dental-admin/internal/handler/dashboard"
	"github.com/citysmiles/dental-admin/internal/handler/health"
	inventoryHandler "github.com/citysmiles/dental-admin/internal/handler/inventory"
	lookupHandler "github.com/citysmiles/dental-admin/internal/handler/lookup"
	patientHandler "github.com/citysmiles/dental-admin/internal/handler/patient"
	prescriptionHandler "github.com/citysmiles/dental-admin/internal/handler/prescription"
	"github.com/citysmiles/dental-admin/internal/handler/prometheus"
	treatmentHandler "github.com/citysmiles/dental-admin/internal/handler/treatment"
	"github.com/citysmiles/dental-admin/internal/middleware"
	"github.com/citysmiles/dental-admin/internal/readmodel"
	"github.com/citysmiles/dental-admin/internal/realtime"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/remote/feed"
	"github.com/citysmiles/dental-admin/internal/remote/postgres"
	"github.com/citysmiles/dental-admin/internal/router"
	"github.com/citysmiles/dental-admin/internal/service"
	appointmentService "github.com/citysmiles/dental-admin/internal/service/appointment"
	dashboardService "github.com/citysmiles/dental-admin/internal/service/dashboard"
	inventoryService "github.com/citysmiles/dental-admin/internal/service/inventory"
	patientService "github.com/citysmiles/dental-admin/internal/service/patient"
	prescriptionService "github.com/citysmiles/dental-admin/internal/service/prescription"
	treatmentService "github.com/citysmiles/dental-admin/internal/service/treatment"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/messaging/redis"
	"github.com/citysmiles/dental-admin/pkg/metrics"
)

// view is a live table view the API keeps open for its lifetime.
type view interface {
	realtime.Source
	Open(ctx context.Context) error
	Close()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Logging.JSON,
	})
	log.Logger = appLog.ZL
	m := metrics.NewMetrics(cfg.Metrics.Namespace, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dsn, err := cfg.DSN()
	if err != nil {
		appLog.Fatal(err, "invalid remote configuration")
	}
	db, err := postgres.NewDB(dsn, cfg.Database.ToPoolConfig())
	if err != nil {
		appLog.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	sub, closeSub, err := changeSource(ctx, cfg, dsn, appLog)
	if err != nil {
		appLog.Fatal(err, "failed to start change feed")
	}
	defer closeSub()

	svc := remote.Instrument(remote.Compose(postgres.NewStore(db), sub), m)
	opts := service.Options{Logger: appLog, Metrics: m}

	patients := patientService.NewService(svc, opts)
	appointments := appointmentService.NewService(svc, opts)
	treatments := treatmentService.NewService(svc, opts)
	prescriptions := prescriptionService.NewService(svc, cfg.Forms.CompensatePrescriptions, opts)
	inventory := inventoryService.NewService(svc, opts)

	hub := realtime.NewHub(appLog, m)
	defer hub.Close()
	for _, v := range []view{patients, appointments, treatments, prescriptions, inventory} {
		if err := v.Open(ctx); err != nil {
			appLog.Fatal(err, "failed to open view", "topic", v.Topic())
		}
		defer v.Close()
		hub.Attach(v)
	}

	lookup := readmodel.NewLookupCache(svc, cfg.Lookup.TTL, appLog)
	routes := []handler.Route{
		dashboardHandler.NewHandler(dashboardService.NewService(svc, opts)),
		patientHandler.NewHandler(patients, lookup),
		appointmentHandler.NewHandler(appointments),
		treatmentHandler.NewHandler(treatments),
		prescriptionHandler.NewHandler(prescriptions),
		inventoryHandler.NewHandler(inventory),
		lookupHandler.NewHandler(lookup),
	}

	healthH := health.NewHandler(map[string]health.Check{
		"database": db.PingContext,
	})
	r := router.NewRouter(
		healthH,
		prometheus.New(nil, m),
		realtime.NewHandler(hub, cfg.Server.AllowedOrigins).Connect,
		routes,
		router.RouterConfig{
			RateLimit:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:    cfg.RateLimit.Burst,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			CORSConfig:   middleware.CORSConfig{AllowOrigins: cfg.Server.AllowedOrigins, MaxAge: 12 * time.Hour},
			Logger:       appLog,
			Release:      cfg.Server.Release,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLog.Info("starting server", "port", cfg.Server.Port, "realtime_source", cfg.Realtime.Source)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "server forced to shutdown")
	}
	cancel()
}

// changeSource picks where change events come from. The returned func
// releases it.
func changeSource(ctx context.Context, cfg *config.Config, dsn string, appLog *logger.Logger) (remote.Subscriber, func(), error) {
	if cfg.Realtime.Source == config.SourceRedis {
		broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &appLog.ZL)
		if err != nil {
			return nil, nil, err
		}
		return feed.NewSubscriber(broker, appLog), func() { broker.Close() }, nil
	}

	listener, err := postgres.NewListener(dsn, appLog)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			appLog.Error(err, "change listener stopped")
		}
	}()
	return listener, func() { listener.Close() }, nil
}
