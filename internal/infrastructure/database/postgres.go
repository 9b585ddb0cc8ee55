package database

import (
	"context"
	"fmt"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

// Open connects to the configured database driver
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "", "postgres":
		return NewPostgresDB(cfg, log)
	case "sqlite":
		db, err := NewSQLiteDB(cfg.Database.Name)
		if err != nil {
			return nil, err
		}
		if err := AutoMigrateModels(db); err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// NewPostgresDB creates a new PostgreSQL database connection using GORM
func NewPostgresDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.GetDatabaseDSN()

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.Server.Environment == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MinConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if log != nil {
		log.Info("✅ Database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))
	}

	return db, nil
}

// NewSQLiteDB opens a sqlite database. Names without a path are opened as a
// shared in-memory database, which is what tests and local dry runs use.
func NewSQLiteDB(name string) (*gorm.DB, error) {
	dsn := name
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	// sqlite serialises writers; a single connection keeps transactions from
	// tripping over "database is locked"
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// AutoMigrateModels creates the schema from the gorm models. Postgres
// deployments use the SQL files under migrations/ instead.
func AutoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.Meeting{},
		&entities.ProcessingStep{},
		&entities.Transcript{},
		&entities.MeetingSummary{},
		&entities.TimelineEntry{},
		&entities.Task{},
	)
}

// MigrationDirection selects which way Migrate moves the schema
type MigrationDirection = migrate.MigrationDirection

const (
	MigrateUp   = migrate.Up
	MigrateDown = migrate.Down
)

// Migrate applies or rolls back the SQL migrations in dir. max limits the number
// of migrations applied, 0 means all.
func Migrate(db *gorm.DB, dir string, direction MigrationDirection, max int) (int, error) {
	if dir == "" {
		dir = "migrations"
	}
	migrations := &migrate.FileMigrationSource{Dir: dir}

	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get db connection during migrate: %w", err)
	}

	n, err := migrate.ExecMax(sqlDB, migrationDialect(db), migrations, direction, max)
	if err != nil {
		return n, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}

// sql-migrate names the sqlite dialect differently from gorm
func migrationDialect(db *gorm.DB) string {
	if name := db.Dialector.Name(); name != "sqlite" {
		return name
	}
	return "sqlite3"
}

// MigrationState is one row of the migration status report
type MigrationState struct {
	ID        string
	AppliedAt *time.Time
}

// MigrationStatus lists every known migration and when it was applied
func MigrationStatus(db *gorm.DB, dir string) ([]MigrationState, error) {
	if dir == "" {
		dir = "migrations"
	}
	source := &migrate.FileMigrationSource{Dir: dir}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get db connection: %w", err)
	}

	known, err := source.FindMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	records, err := migrate.GetMigrationRecords(sqlDB, migrationDialect(db))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration records: %w", err)
	}

	applied := make(map[string]time.Time, len(records))
	for _, r := range records {
		applied[r.Id] = r.AppliedAt
	}

	states := make([]MigrationState, 0, len(known))
	for _, m := range known {
		state := MigrationState{ID: m.Id}
		if at, ok := applied[m.Id]; ok {
			at := at
			state.AppliedAt = &at
		}
		states = append(states, state)
	}
	return states, nil
}

// Ping checks the pooled connection is alive
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// CloseDB closes the database connection
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
