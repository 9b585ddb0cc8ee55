package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Assembly AssemblyConfig
	Groq     GroqConfig
	Calendar CalendarConfig
	Pipeline PipelineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	MaxUploadBytes  int64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver        string // "postgres" or "sqlite"
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxConns      int
	MinConns      int
	AutoMigrate   bool
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
	PresignExpiry   time.Duration
}

// AssemblyConfig holds AssemblyAI configuration
type AssemblyConfig struct {
	APIKey        string
	BaseURL       string
	LanguageCode  string
	SpeakerLabels bool
}

// GroqConfig holds Groq configuration
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// CalendarConfig holds the optional Google Calendar sync configuration
type CalendarConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string
	TimeZone     string
}

// PipelineConfig holds the processing policy, decoded with envconfig (PIPELINE_ prefix)
type PipelineConfig struct {
	MaxRetries           int           `envconfig:"MAX_RETRIES" default:"2"`
	RetryBackoff         time.Duration `envconfig:"RETRY_BACKOFF" default:"2s"`
	TranscriptionTimeout time.Duration `envconfig:"TRANSCRIPTION_TIMEOUT" default:"15m"`
	AnalysisTimeout      time.Duration `envconfig:"ANALYSIS_TIMEOUT" default:"3m"`
	ExtractionTimeout    time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"1m"`
	Workers              int           `envconfig:"WORKERS" default:"2"`
	QueueSize            int           `envconfig:"QUEUE_SIZE" default:"64"`
	LockBackend          string        `envconfig:"LOCK_BACKEND" default:"memory"`
	LockTTL              time.Duration `envconfig:"LOCK_TTL" default:"2m"`
	SweepSchedule        string        `envconfig:"SWEEP_SCHEDULE" default:"@every 5m"`
	StaleAfter           time.Duration `envconfig:"STALE_AFTER" default:"30m"`
	ExtractionMode       string        `envconfig:"EXTRACTION_MODE" default:"shared"`
}

// Extraction modes
const (
	ExtractionShared    = "shared"
	ExtractionDedicated = "dedicated"
)

// Lock backends
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 100)) << 20,
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", "postgres"),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			Name:          getEnv("DB_NAME", "meeting_pipeline"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate:   getEnvAsBool("DB_AUTO_MIGRATE", true),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", "15m"),
			Issuer:       getEnv("JWT_ISSUER", "meeting-pipeline"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-audio"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
			PresignExpiry:   getEnvAsDuration("STORAGE_PRESIGN_EXPIRY", "2h"),
		},
		Assembly: AssemblyConfig{
			APIKey:        getEnv("ASSEMBLYAI_API_KEY", ""),
			BaseURL:       getEnv("ASSEMBLYAI_BASE_URL", ""),
			LanguageCode:  getEnv("ASSEMBLYAI_LANGUAGE", "en"),
			SpeakerLabels: getEnvAsBool("ASSEMBLYAI_SPEAKER_LABELS", true),
		},
		Groq: GroqConfig{
			APIKey:      getEnv("GROQ_API_KEY", ""),
			BaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Temperature: getEnvAsFloat("GROQ_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("GROQ_MAX_TOKENS", 4096),
			Timeout:     getEnvAsDuration("GROQ_TIMEOUT", "2m"),
		},
		Calendar: CalendarConfig{
			Enabled:      getEnvAsBool("CALENDAR_ENABLED", false),
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
			CalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),
			TimeZone:     getEnv("CALENDAR_TIMEZONE", "UTC"),
		},
	}

	if err := envconfig.Process("PIPELINE", &config.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Calendar.Enabled && (c.Calendar.ClientID == "" || c.Calendar.ClientSecret == "" || c.Calendar.RefreshToken == "") {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN are required when CALENDAR_ENABLED is set")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	return nil
}

// Validate checks the pipeline policy values
func (p *PipelineConfig) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("PIPELINE_MAX_RETRIES must not be negative")
	}
	if p.RetryBackoff < 0 {
		return fmt.Errorf("PIPELINE_RETRY_BACKOFF must not be negative")
	}
	if p.TranscriptionTimeout <= 0 || p.AnalysisTimeout <= 0 || p.ExtractionTimeout <= 0 {
		return fmt.Errorf("pipeline stage timeouts must be positive")
	}
	if p.Workers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive")
	}
	if p.QueueSize <= 0 {
		return fmt.Errorf("PIPELINE_QUEUE_SIZE must be positive")
	}
	switch p.LockBackend {
	case LockMemory, LockRedis:
	default:
		return fmt.Errorf("PIPELINE_LOCK_BACKEND must be %s or %s, got %q", LockMemory, LockRedis, p.LockBackend)
	}
	if p.LockTTL <= 0 {
		return fmt.Errorf("PIPELINE_LOCK_TTL must be positive")
	}
	switch p.ExtractionMode {
	case ExtractionShared, ExtractionDedicated:
	default:
		return fmt.Errorf("PIPELINE_EXTRACTION_MODE must be %s or %s, got %q", ExtractionShared, ExtractionDedicated, p.ExtractionMode)
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
