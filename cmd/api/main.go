// @title Taiga Metrics Service
// @version 1.0
// @description Project, student and historical metrics computed from a taiga database.
// @BasePath /
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"taiga-metrics-service/internal/app"
	"taiga-metrics-service/internal/config"
	metricsHttp "taiga-metrics-service/internal/metrics/adapters/http/fiber"
	"taiga-metrics-service/internal/platform/telemetry"
	configHttp "taiga-metrics-service/internal/projectconfig/adapters/http/fiber"

	_ "taiga-metrics-service/docs"
)

func main() {
	// Config
	cfg, err := config.Load(config.New(os.Getenv("TAIGA_METRICS_CONFIG_FILE")))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceName:  app.ServiceName,
		Environment:  cfg.LogEnv,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Databases, repositories, usecases
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer closeApp(a, log)

	// HTTP (Fiber) app + handlers
	server := fiber.New(fiber.Config{DisableStartupMessage: true})
	server.Use(recover.New())
	server.Use(a.Recorder.Middleware())

	metricsHttp.NewMetricsHandler(a.Metrics, cfg.TTLMinutes).Register(server)
	configHttp.NewConfigHandler(a.Configs).Register(server)

	server.Get("/healthz", func(c *fiber.Ctx) error {
		if err := a.TaigaDB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	server.Get("/internal/prometheus", adaptor.HTTPHandler(a.Recorder.Handler()))

	// Swagger
	server.Get("/docs/*", fiberSwagger.WrapHandler)

	// Graceful shutdown
	go func() {
		if err := server.Listen(cfg.HTTPAddr); err != nil {
			log.Error("fiber stopped", "error", err)
		}
	}()

	log.Info("server started",
		"addr", cfg.HTTPAddr,
		"snapshot_backend", cfg.SnapshotBackend,
		"ttl_minutes", cfg.TTLMinutes,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("fiber shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracer shutdown error", "error", err)
	}

	log.Info("server exiting")
}

// closeApp releases the databases and logs what could not be closed.
func closeApp(c io.Closer, log *slog.Logger) {
	if err := c.Close(); err != nil {
		log.Error("app close error", "error", err)
	}
}
