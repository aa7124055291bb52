package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-schedule/internal/config"
	calendarHandler "github.com/jwalitptl/clinic-schedule/internal/handler/calendar"
	emergencyHandler "github.com/jwalitptl/clinic-schedule/internal/handler/emergency"
	"github.com/jwalitptl/clinic-schedule/internal/handler/health"
	promHandler "github.com/jwalitptl/clinic-schedule/internal/handler/prometheus"
	scheduleHandler "github.com/jwalitptl/clinic-schedule/internal/handler/schedule"
	"github.com/jwalitptl/clinic-schedule/internal/middleware"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/repository/postgres"
	redisRepo "github.com/jwalitptl/clinic-schedule/internal/repository/redis"
	"github.com/jwalitptl/clinic-schedule/internal/router"
	calendarService "github.com/jwalitptl/clinic-schedule/internal/service/calendar"
	emergencyService "github.com/jwalitptl/clinic-schedule/internal/service/emergency"
	"github.com/jwalitptl/clinic-schedule/internal/service/notification"
	scheduleService "github.com/jwalitptl/clinic-schedule/internal/service/schedule"
	"github.com/jwalitptl/clinic-schedule/internal/worker"
	"github.com/jwalitptl/clinic-schedule/pkg/logger"
	"github.com/jwalitptl/clinic-schedule/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Logging.Console,
	})
	log.Logger = appLogger.ZL
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Logging.Level))

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	base := postgres.NewBaseRepository(db)

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "clinic")

	// Redis backs the schedule cache and the notification broker. The
	// service keeps working against postgres alone when it is down.
	checks := map[string]health.Check{"database": base.Ping}
	var scheduleRepo repository.ScheduleRepository = postgres.NewScheduleRepository(base)
	sinks := []notification.Sink{notification.NewLogSink(appLogger.ZL)}

	redisClient, err := redis.NewClient(context.Background(), redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache and broker")
	} else {
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		scheduleRepo = redisRepo.NewScheduleCache(scheduleRepo, redisClient, cfg.Redis.CacheTTL, m, appLogger.ZL)
		if cfg.Notifications.Broker {
			broker := redis.NewRedisBroker(redisClient, appLogger.ZL)
			sinks = append(sinks, notification.NewBrokerSink(broker, cfg.Notifications.Channel, appLogger.ZL))
		}
	}
	sink := notification.Multi(sinks...)

	// Initialize services
	sessions := scheduleService.NewSessions(scheduleService.SessionConfig{
		TTL:          cfg.Schedule.SessionTTL,
		Debounce:     cfg.Schedule.Debounce,
		WriteTimeout: cfg.Schedule.WriteTimeout,
	}, scheduleRepo, sink, m, appLogger.ZL)
	emergencySvc := emergencyService.NewService(postgres.NewEmergencyRepository(base), sink, appLogger.ZL)
	calendarSvc := calendarService.NewService(
		postgres.NewConsultationRepository(base),
		scheduleRepo,
		calendarService.Geometry{
			StartHour:    cfg.Calendar.StartHour,
			EndHour:      cfg.Calendar.EndHour,
			SlotMinutes:  cfg.Calendar.SlotMinutes,
			SlotHeightPx: float64(cfg.Calendar.SlotHeightPx),
		},
		cfg.Calendar.DraftDuration,
		m,
		appLogger.ZL,
	)

	// Setup router
	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: cfg.CORS.AllowedMethods,
			AllowHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:       int((12 * time.Hour).Seconds()),
		},
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}
	r := router.NewRouter(routerConfig, m,
		[]router.Handler{health.NewHandler(checks), promHandler.New(registry)},
		scheduleHandler.NewHandler(sessions),
		emergencyHandler.NewHandler(emergencySvc),
		calendarHandler.NewHandler(calendarSvc),
	)
	r.Setup(routerConfig)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Retry weekdays whose debounced write failed
	retryWorker := worker.NewRetryWorker(sessions, worker.RetryConfig{
		Interval: cfg.Schedule.RetryInterval,
		Timeout:  cfg.Schedule.WriteTimeout,
	}, appLogger, m)
	go retryWorker.Start(ctx)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()

	// Pending debounced writes go out before the process exits
	if err := sessions.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush schedule sessions")
	}

	log.Info().Msg("server exited properly")
}
