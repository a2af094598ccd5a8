package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Store      StoreConfig      `yaml:"store"`
	Queue      QueueConfig      `yaml:"queue"`
	LogLevel   string           `yaml:"log_level"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string `yaml:"http_addr"`
	GRPCAddr       string `yaml:"grpc_addr"`
	MaxUploadMB    int    `yaml:"max_upload_mb"`
	AllowKeyHeader bool   `yaml:"allow_key_header"`
}

// LLMConfig holds model-related configuration
type LLMConfig struct {
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	ClientCacheSize int           `yaml:"client_cache_size"`
}

// ExtractionConfig holds the tracked year window and batch pacing.
type ExtractionConfig struct {
	StartYear      int           `yaml:"start_year"`
	EndYear        int           `yaml:"end_year"`
	InterFileDelay time.Duration `yaml:"inter_file_delay"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// QueueConfig holds async batch queue settings.
type QueueConfig struct {
	Size         int           `yaml:"size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	History      int           `yaml:"history"`
}

// Years returns the configured tracked window.
func (c *Config) Years() entity.YearRange {
	return entity.YearRange{Start: c.Extraction.StartYear, End: c.Extraction.EndYear}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			MaxUploadMB:    getEnvAsInt("MAX_UPLOAD_MB", 64),
			AllowKeyHeader: getEnvAsBool("ALLOW_KEY_HEADER", true),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature:     getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:         getEnvAsDuration("GEMINI_TIMEOUT", 120*time.Second),
			MaxAttempts:     getEnvAsInt("GEMINI_MAX_ATTEMPTS", constants.DefaultMaxAttempts),
			InitialBackoff:  getEnvAsDuration("GEMINI_INITIAL_BACKOFF", constants.DefaultInitialBackoff),
			ClientCacheSize: getEnvAsInt("GEMINI_CLIENT_CACHE_SIZE", 16),
		},
		Extraction: ExtractionConfig{
			StartYear:      getEnvAsInt("START_YEAR", constants.DefaultStartYear),
			EndYear:        getEnvAsInt("END_YEAR", constants.DefaultEndYear),
			InterFileDelay: getEnvAsDuration("INTER_FILE_DELAY", constants.DefaultInterFileDelay),
		},
		Store: StoreConfig{
			DSN: getEnv("STORE_DSN", "memory"),
		},
		Queue: QueueConfig{
			Size:         getEnvAsInt("QUEUE_SIZE", 32),
			BatchTimeout: getEnvAsDuration("BATCH_TIMEOUT", 15*time.Minute),
			History:      getEnvAsInt("BATCH_HISTORY", 256),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// LoadConfigFile loads the environment config and overlays the YAML file at path.
// Keys absent from the file keep their environment/default value.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// SlogLevel parses LogLevel; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the loaded configuration. The API key is optional here:
// the server can run on per-request keys alone.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("START_YEAR", c.Extraction.StartYear, Between(1900, 2999)).
		Field("END_YEAR", c.Extraction.EndYear, Between(c.Extraction.StartYear, 2999)).
		Field("GEMINI_MODEL", c.LLM.Model, Required).
		Field("GEMINI_MAX_ATTEMPTS", c.LLM.MaxAttempts, Between(1, 10)).
		Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), fmt.Errorf("%w: %w", ErrInvalidInput, v.Error()))
	}
	return nil
}

// RequireAPIKey fails when no model credential is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return NewAppError(CodeConfig, "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
