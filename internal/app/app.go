// Package app wires the pipeline's collaborators from configuration. The API
// server and the operator CLI share it so both see the same lock arena,
// repositories and stage adapters.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/adapter/repository"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/external/calendar"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/task"
	"github.com/johnquangdev/meeting-pipeline/pkg/ai"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

// App holds the storage layer every entry point needs
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client // nil with the memory lock backend

	Meetings  repositories.MeetingRepository
	Ledger    repositories.StepLedger
	Artifacts repositories.ArtifactRepository
	Tasks     repositories.TaskRepository
	Locker    repositories.ExecutionLocker
	Policy    pipeline.Policy
	Projector *pipeline.Projector
}

// New opens the database and the lock arena
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate && cfg.Database.Driver != "sqlite" {
		if cfg.Server.Environment == "production" {
			_ = database.CloseDB(db)
			return nil, fmt.Errorf("DB_AUTO_MIGRATE is enabled in production; manage the schema with pipelinectl migrate")
		}
		if logger != nil {
			logger.Info("🔄 Running GORM AutoMigrate (development only)")
		}
		if err := database.AutoMigrateModels(db); err != nil {
			_ = database.CloseDB(db)
			return nil, fmt.Errorf("failed to run AutoMigrate: %w", err)
		}
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Meetings:  repository.NewMeetingRepository(db),
		Ledger:    repository.NewStepLedger(db),
		Artifacts: repository.NewArtifactRepository(db),
		Tasks:     repository.NewTaskRepository(db),
		Policy:    pipeline.NewPolicy(cfg.Pipeline),
	}
	a.Projector = pipeline.NewProjector(a.Meetings, a.Ledger)

	switch cfg.Pipeline.LockBackend {
	case config.LockRedis:
		client, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			_ = database.CloseDB(db)
			return nil, err
		}
		a.Redis = client
		a.Locker = cache.NewRedisLocker(client, cfg.Pipeline.LockTTL, logger)
	default:
		a.Locker = cache.NewMemoryLocker(cfg.Pipeline.LockTTL)
	}

	if logger != nil {
		logger.Info("✅ Storage layer ready",
			zap.String("db_driver", db.Dialector.Name()),
			zap.String("lock_backend", cfg.Pipeline.LockBackend),
		)
	}
	return a, nil
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if err := database.CloseDB(a.DB); err != nil && a.Logger != nil {
		a.Logger.Warn("⚠️ Failed to close database", zap.Error(err))
	}
}

// HealthChecks returns a ping per backing service. p may be nil when only the
// storage layer is open.
func (a *App) HealthChecks(p *Pipeline) map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error { return database.Ping(ctx, a.DB) },
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if p != nil && p.Storage != nil {
		checks["storage"] = p.Storage.Ping
	}
	return checks
}

// Pipeline is the processing side: object store, stage adapters and orchestrator.
// Calendar and Events are nil when calendar sync is disabled.
type Pipeline struct {
	Storage      *storage.MinIOClient
	Orchestrator *pipeline.Orchestrator
	Calendar     *calendar.GoogleCalendar
	Events       *task.EventJanitor
}

// NewPipeline connects to the object store and builds the stage adapters
func (a *App) NewPipeline(ctx context.Context) (*Pipeline, error) {
	store, err := storage.NewMinIOClient(ctx, &a.Config.Storage, a.Logger)
	if err != nil {
		return nil, err
	}

	set, err := a.stageSet(store)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Storage: store}
	var hooks []pipeline.CompletionHook
	if a.Config.Calendar.Enabled {
		p.Calendar = calendar.NewGoogleCalendar(ctx, a.Config.Calendar, a.Tasks, a.Logger)
		p.Events = task.NewEventJanitor(a.Tasks, p.Calendar, a.Logger)
		hooks = append(hooks, p.Calendar)
		if a.Logger != nil {
			a.Logger.Info("📅 Calendar sync enabled", zap.String("calendar_id", a.Config.Calendar.CalendarID))
		}
	}

	p.Orchestrator = pipeline.NewOrchestrator(pipeline.OrchestratorDeps{
		Meetings:  a.Meetings,
		Ledger:    a.Ledger,
		Artifacts: a.Artifacts,
		Stages:    set,
		Locker:    a.Locker,
		Hooks:     hooks,
	}, a.Policy, a.Logger)
	return p, nil
}

// stageSet picks the extraction adapters for the configured mode
func (a *App) stageSet(resolver ai.AudioURLResolver) (stages.Set, error) {
	groq := ai.NewGroqClient(a.Config.Groq, a.Logger)
	set := stages.Set{
		Transcriber: ai.NewAssemblyAITranscriber(a.Config.Assembly, resolver, a.Logger),
		Analyzer:    groq,
	}

	switch a.Config.Pipeline.ExtractionMode {
	case config.ExtractionShared:
		portions := ai.NewPortionExtractor()
		set.Timeline = portions
		set.Tasks = portions
	case config.ExtractionDedicated:
		set.Timeline = groq
		set.Tasks = groq
	default:
		return stages.Set{}, fmt.Errorf("unknown extraction mode %q", a.Config.Pipeline.ExtractionMode)
	}
	return set, nil
}
