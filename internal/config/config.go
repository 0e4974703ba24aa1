package config

import (
	"os"
	"strconv"
	"time"

	"datalyst/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Server   ServerConfig
	Storage  StorageConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// LLMConfig holds text-generation service settings
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	MaxUploadBytes  int64
	MaxConcurrent   int64 // concurrent analysis runs
	ShutdownTimeout time.Duration
}

// StorageConfig holds the directories the pipeline's collaborators write to.
// These are passed in explicitly rather than read as ambient process state.
type StorageConfig struct {
	UploadDir         string
	VisualizationsDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		LLM: LLMConfig{
			APIKey:      os.Getenv("LLM_API_KEY"),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8000"),
			MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
			MaxConcurrent:   int64(getEnvInt("MAX_CONCURRENT_ANALYSES", 4)),
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
			VisualizationsDir: getEnv("VISUALIZATIONS_DIR", "./visualizations"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if c.Server.MaxConcurrent < 1 {
		return errors.ConfigInvalid("MAX_CONCURRENT_ANALYSES must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
