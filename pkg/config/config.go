package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
// ⭐ SSOT: 설정 파일과 환경변수는 여기서만 읽음
type Config struct {
	App      AppConfig      `yaml:"app"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`

	// Environment-only settings
	Database DatabaseConfig `yaml:"-"`
	Redis    RedisConfig    `yaml:"-"`

	// Logging
	LogLevel  string `yaml:"-"`
	LogFormat string `yaml:"-"`
}

// AppConfig holds application identity
type AppConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
	Env      string `yaml:"env"` // development, staging, production
}

// PipelineConfig holds the run parameters
type PipelineConfig struct {
	Universe              string   `yaml:"universe"` // manual, sp500, all_us
	Symbols               []string `yaml:"symbols"`
	MaxSymbols            int      `yaml:"max_symbols"`
	LookbackDays          int      `yaml:"lookback_days"`
	SnapshotRetentionDays int      `yaml:"snapshot_retention_days"`
	TargetAnnualReturn    float64  `yaml:"target_annual_return"`
	MaxRecommendations    int      `yaml:"max_recommendations"`
	RecentRunsLimit       int      `yaml:"recent_runs_limit"`
	FetchWorkers          int      `yaml:"fetch_workers"`
}

// ScheduleConfig holds cron settings
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // standard 5-field crontab
}

// OutputConfig holds export settings
type OutputConfig struct {
	DashboardJSONPath string `yaml:"dashboard_json_path"`
}

// StorageConfig holds persistence behavior
type StorageConfig struct {
	UpsertMode string `yaml:"upsert_mode"` // native, delete_insert
}

// ServerConfig holds read API settings
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig holds the storage connection descriptor
type DatabaseConfig struct {
	URL string

	// Connection Pool (Postgres only)
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Default returns the configuration used when the YAML file omits a value
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "quantdash",
			Timezone: "UTC",
			Env:      "development",
		},
		Pipeline: PipelineConfig{
			Universe:              "manual",
			Symbols:               []string{"AAPL"},
			MaxSymbols:            500,
			LookbackDays:          40,
			SnapshotRetentionDays: 14,
			TargetAnnualReturn:    0.10,
			MaxRecommendations:    10,
			RecentRunsLimit:       20,
			FetchWorkers:          4,
		},
		Schedule: ScheduleConfig{
			Enabled: true,
			Cron:    "0 18 * * 1-5",
		},
		Output: OutputConfig{
			DashboardJSONPath: "docs/data/latest.json",
		},
		Storage: StorageConfig{
			UpsertMode: "native",
		},
		Server: ServerConfig{
			Port: "8089",
		},
	}
}

// Load reads the YAML file at path, then applies environment overrides
// An empty path skips the file and uses defaults
func Load(path string) (*Config, error) {
	loadEnvFile()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// decode strictly unmarshals YAML on top of cfg; unknown fields fail
func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (c *Config) applyEnv() {
	c.Database = DatabaseConfig{
		URL:             getEnv("DATABASE_URL", "sqlite://./data/quant.db"),
		MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
		MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
		MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
		MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
	}

	c.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
		Enabled:  getEnvAsBool("REDIS_ENABLED", false),
	}

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")
	c.App.Env = getEnv("ENV", c.App.Env)
	c.Server.Port = getEnv("PORT", c.Server.Port)
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.App.Env != "development" && c.App.Env != "staging" && c.App.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q: %w", c.App.Timezone, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Pipeline.Universe)) {
	case "manual", "sp500", "all_us":
	default:
		return fmt.Errorf("pipeline.universe must be one of: manual, sp500, all_us")
	}

	if c.Pipeline.LookbackDays <= 0 {
		return fmt.Errorf("pipeline.lookback_days must be positive")
	}
	if c.Pipeline.SnapshotRetentionDays < 0 {
		return fmt.Errorf("pipeline.snapshot_retention_days must not be negative")
	}
	if c.Pipeline.MaxSymbols <= 0 {
		return fmt.Errorf("pipeline.max_symbols must be positive")
	}

	switch c.Storage.UpsertMode {
	case "native", "delete_insert":
	default:
		return fmt.Errorf("storage.upsert_mode must be one of: native, delete_insert")
	}

	if c.Output.DashboardJSONPath == "" {
		return fmt.Errorf("output.dashboard_json_path is required")
	}

	return nil
}

// Location returns the configured timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
