package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/current-weather/internal/api/http"
	"github.com/i474232898/current-weather/internal/config"
	"github.com/i474232898/current-weather/internal/metrics"
	"github.com/i474232898/current-weather/internal/scheduler"
	"github.com/i474232898/current-weather/internal/store"
	"github.com/i474232898/current-weather/internal/weather"
	"github.com/i474232898/current-weather/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls. A zero timeout keeps
	// the transport defaults.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := providers.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithBaseURL(cfg.OpenWeatherBaseURL),
		providers.WithBreaker(providers.BreakerConfig{
			MaxConsecutiveFailures: uint32(cfg.BreakerMaxFailures),
			OpenTimeout:            cfg.BreakerTimeout,
		}),
	)

	// In-memory history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	recorder := metrics.NewPrometheusRecorder()

	// Lifecycle scope for every fetch; cancelled on shutdown.
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	holder := weather.NewHolder(client,
		weather.WithLifecycle(appCtx),
		weather.WithOrdering(cfg.FetchOrdering),
		weather.WithRecorder(memStore),
		weather.WithMetrics(recorder),
	)
	defer holder.Close()

	log.Printf("INFO: fetch ordering: %s", cfg.FetchOrdering)

	// Optional periodic refresh of one city.
	sched := scheduler.New(cfg.RefreshCity, cfg.RefreshInterval, holder)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "current-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "current-weather",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(recorder.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, holder, memStore)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	// Closing the holder first ends open event streams so shutdown does not
	// wait on them.
	holder.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
