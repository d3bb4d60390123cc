package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "auroracast/internal/api/http"
	"auroracast/internal/config"
	"auroracast/internal/model"
	"auroracast/internal/predict"
	"auroracast/internal/scheduler"
	"auroracast/internal/spaceweather"
	"auroracast/internal/store"
	"auroracast/internal/weather"
	"auroracast/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Models are loaded once and immutable for the process lifetime.
	gbModel, err := model.Load(cfg.GBModelPath)
	if err != nil {
		log.Fatalf("failed to load gb model: %v", err)
	}
	xgbModel, err := model.Load(cfg.XGBModelPath)
	if err != nil {
		log.Fatalf("failed to load xgb model: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Space weather: NOAA client behind the process-wide TTL cache.
	swCache := spaceweather.NewCache(
		spaceweather.NewClient(httpClient),
		cfg.SpaceWeatherTTL,
		cfg.SpaceWeatherRefreshTimeout,
	)

	// Weather providers in fallback order: WeatherKit first when its
	// credentials are configured, Open-Meteo always last (keyless).
	var provs []weather.Provider
	if cfg.WeatherKit.Configured() {
		provs = append(provs, providers.NewWeatherKitProvider(httpClient, cfg.WeatherKit))
	} else {
		log.Println("INFO: WeatherKit credentials not configured; using Open-Meteo only")
	}
	provs = append(provs, providers.NewOpenMeteoProvider(httpClient))
	resolver := weather.NewResolver(provs...)

	svc := predict.NewService(resolver, swCache, gbModel, xgbModel)
	hist := store.NewMemoryStore(cfg.HistoryMaxEntries, cfg.HistoryMaxAge)

	// Prewarm the space weather cache on the upstream cadence so requests
	// mostly hit a fresh snapshot.
	prewarm := scheduler.New(swCache, cfg.SpaceWeatherTTL, cfg.SpaceWeatherRefreshTimeout)
	if err := prewarm.Start(); err != nil {
		log.Fatalf("failed to start prewarm scheduler: %v", err)
	}
	defer prewarm.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "auroracast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"service":       "auroracast",
			"models_loaded": true,
		})
	})

	httpapi.RegisterRoutes(app, svc, hist)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
