package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/route-risk/internal/api/http"
	"github.com/i474232898/route-risk/internal/cache"
	"github.com/i474232898/route-risk/internal/config"
	"github.com/i474232898/route-risk/internal/logging"
	"github.com/i474232898/route-risk/internal/remote"
	"github.com/i474232898/route-risk/internal/scheduler"
	"github.com/i474232898/route-risk/internal/session"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger := slog.Default()

	// Lookup cache for idempotent remote calls.
	var lookups cache.Cache
	switch cfg.CacheBackend {
	case config.CacheValkey:
		vc, err := cache.NewValkey(cfg.ValkeyAddr, cfg.CacheTTL)
		if err != nil {
			logger.Error("failed to connect to valkey", "addr", cfg.ValkeyAddr, "error", err)
			os.Exit(1)
		}
		defer vc.Close()
		lookups = vc
	default:
		mem, err := cache.NewMemory(cfg.CacheCapacity)
		if err != nil {
			logger.Error("failed to create cache", "error", err)
			os.Exit(1)
		}
		lookups = mem
	}

	client, err := remote.New(remote.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		HTTPClient: &http.Client{},
		Cache:      lookups,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create route service client", "error", err)
		os.Exit(1)
	}

	sess := session.New(client, session.Config{
		Debounce:    cfg.Debounce,
		WindowHours: cfg.RecommendWindowHours,
		Logger:      logger,
	})
	defer sess.Close()

	// Scheduler that periodically refreshes fulfilled results.
	sched := scheduler.New(sess.Orchestrator, cfg.RefreshInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "route-risk",
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
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	httpapi.RegisterRoutes(app, sess, logger)

	go func() {
		logger.Info("bridge listening", "port", cfg.Port, "route_service", cfg.BaseURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
