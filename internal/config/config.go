package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Evaluator  EvaluatorConfig  `mapstructure:"evaluator"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Plagiarism PlagiarismConfig `mapstructure:"plagiarism"`
	Migration  MigrationConfig  `mapstructure:"migration"`

	// Runtime flags set from the command line, not the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// EvaluatorConfig drives the script-based answer evaluator: which
// interpreter to spawn, where the per-variant scripts live, and how long a
// single evaluation call may run.
type EvaluatorConfig struct {
	Mode           string        `mapstructure:"mode"` // "script" or "llm"
	PythonBin      string        `mapstructure:"python_bin"`
	ScriptDir      string        `mapstructure:"script_dir"`
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
}

// GeneratorConfig points at the OpenAI-compatible endpoint used for AI
// question generation.
type GeneratorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type PlagiarismConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

type MigrationConfig struct {
	// Email of the account that adopts legacy exams without an owner.
	// Empty means the claim step is skipped.
	LegacyOwnerEmail string `mapstructure:"legacy_owner_email"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("EXAM_PORTAL")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT / server
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Evaluator / generator / plagiarism
	viper.BindEnv("evaluator.mode", "EVALUATOR_MODE")
	viper.BindEnv("evaluator.python_bin", "EVALUATOR_PYTHON_BIN")
	viper.BindEnv("evaluator.script_dir", "EVALUATOR_SCRIPT_DIR")
	viper.BindEnv("evaluator.base_url", "EVALUATOR_BASE_URL")
	viper.BindEnv("evaluator.api_key", "EVALUATOR_API_KEY")
	viper.BindEnv("evaluator.model", "EVALUATOR_MODEL")
	viper.BindEnv("generator.base_url", "GENERATOR_BASE_URL")
	viper.BindEnv("generator.api_key", "GENERATOR_API_KEY")
	viper.BindEnv("generator.model", "GENERATOR_MODEL")
	viper.BindEnv("plagiarism.endpoint", "PLAGIARISM_ENDPOINT")
	viper.BindEnv("plagiarism.api_key", "PLAGIARISM_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Evaluator.TimeoutSeconds = cfg.Evaluator.TimeoutSeconds * time.Second
	if cfg.Evaluator.TimeoutSeconds <= 0 {
		cfg.Evaluator.TimeoutSeconds = 120 * time.Second
	}

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
