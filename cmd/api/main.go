package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/adapter/handler"
	"github.com/johnquangdev/meeting-pipeline/internal/app"
	httpmw "github.com/johnquangdev/meeting-pipeline/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/task"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
	"github.com/johnquangdev/meeting-pipeline/pkg/jwt"
	pkgvalidator "github.com/johnquangdev/meeting-pipeline/pkg/validator"
)

// @title           Meeting Pipeline API
// @version         1.0
// @description     Upload meeting recordings and follow them through transcription, analysis, timeline and task extraction.

// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// cancelled on SIGINT/SIGTERM; running steps stay resumable
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("🔧 Initializing dependencies...")
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Failed to initialize storage layer", zap.Error(err))
	}
	defer a.Close()

	p, err := a.NewPipeline(ctx)
	if err != nil {
		logger.Fatal("❌ Failed to initialize pipeline", zap.Error(err))
	}

	pool := pipeline.NewWorkerPool(p.Orchestrator, cfg.Pipeline.QueueSize, logger)
	if err := pool.Start(ctx, cfg.Pipeline.Workers); err != nil {
		logger.Fatal("❌ Failed to start worker pool", zap.Error(err))
	}

	sweeper := pipeline.NewSweeper(a.Meetings, a.Ledger, pool, a.Policy, logger)
	if err := sweeper.Start(ctx, cfg.Pipeline.SweepSchedule); err != nil {
		logger.Fatal("❌ Failed to start sweeper", zap.Error(err))
	}
	// pick up whatever the previous process left behind
	if n, err := sweeper.Sweep(ctx); err != nil {
		logger.Warn("⚠️ Startup sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("🧹 Resumed meetings from previous run", zap.Int("count", n))
	}

	meetingService := meeting.NewMeetingService(a.Meetings, a.Artifacts, a.Locker, p.Storage, pool, cfg.Server.MaxUploadBytes, logger)
	reprocess := pipeline.NewReprocessController(a.Meetings, a.Ledger, a.Locker, pool, a.Policy, logger)
	var calendarSync task.CalendarSync
	if p.Calendar != nil {
		calendarSync = p.Calendar
		meetingService.WithEventCleanup(p.Events)
		reprocess.WithEventCleanup(p.Events)
	}
	taskService := task.NewTaskService(a.Tasks, a.Meetings, calendarSync, logger)
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry, cfg.JWT.Issuer)

	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	// multipart overhead on top of the audio limit
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxUploadBytes>>20+1)))

	handler.NewRouter(
		cfg.Server.Environment,
		httpmw.EchoAuth(jwtManager),
		handler.NewMeetingHandler(meetingService, logger),
		handler.NewPipelineHandler(meetingService, a.Projector, reprocess, logger),
		handler.NewTaskHandler(taskService, logger),
		handler.NewHealth(a.HealthChecks(p), logger),
	).Setup(e)

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("extraction_mode", cfg.Pipeline.ExtractionMode),
		)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("❌ Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
	}
	sweeper.Stop()
	if err := pool.Stop(); err != nil {
		logger.Warn("⚠️ Worker pool stop", zap.Error(err))
	}

	logger.Info("✅ Server stopped gracefully")
}
