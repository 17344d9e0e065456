// Package config provides configuration management for the report server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/medreport-server/internal/domain"
)

// Manager loads and validates the application configuration using Viper,
// layering defaults, an optional YAML file and MEDREPORT_* environment
// variables.
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/medreport-server/")

	m.v.SetEnvPrefix("MEDREPORT")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars are enough to run.
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 8080)
	m.v.SetDefault("server.read_timeout", "30s")
	m.v.SetDefault("server.write_timeout", "60s")
	m.v.SetDefault("server.idle_timeout", "120s")
	m.v.SetDefault("server.max_upload_mb", 25)

	// Feedback database defaults; sqlite needs no external service.
	m.v.SetDefault("database.driver", "sqlite")
	m.v.SetDefault("database.sqlite_path", "./data/feedback.db")
	m.v.SetDefault("database.host", "localhost")
	m.v.SetDefault("database.port", 5432)
	m.v.SetDefault("database.database", "medreport")
	m.v.SetDefault("database.username", "postgres")
	m.v.SetDefault("database.password", "")
	m.v.SetDefault("database.ssl_mode", "disable")
	m.v.SetDefault("database.migrations_path", "./migrations")
	m.v.SetDefault("database.max_open_conns", 25)
	m.v.SetDefault("database.max_idle_conns", 5)
	m.v.SetDefault("database.conn_max_lifetime", "5m")

	// External AI service defaults
	m.v.SetDefault("external_api.textgen.base_url", "https://api.openai.com/v1")
	m.v.SetDefault("external_api.textgen.model", "gpt-4o-mini")
	m.v.SetDefault("external_api.textgen.temperature", 0.1)
	m.v.SetDefault("external_api.textgen.max_tokens", 2000)
	m.v.SetDefault("external_api.textgen.timeout", "60s")
	m.v.SetDefault("external_api.textgen.rate_limit", 5)

	m.v.SetDefault("external_api.transcription.base_url", "https://api.openai.com/v1")
	m.v.SetDefault("external_api.transcription.model", "whisper-1")
	m.v.SetDefault("external_api.transcription.language", "pt")
	m.v.SetDefault("external_api.transcription.timeout", "120s")
	m.v.SetDefault("external_api.transcription.rate_limit", 5)

	m.v.SetDefault("external_api.ocr.base_url", "https://textract.us-east-1.amazonaws.com")
	m.v.SetDefault("external_api.ocr.region", "us-east-1")
	m.v.SetDefault("external_api.ocr.timeout", "60s")
	m.v.SetDefault("external_api.ocr.rate_limit", 5)

	// Cache defaults
	m.v.SetDefault("cache.redis_url", "redis://localhost:6379")
	m.v.SetDefault("cache.default_ttl", "5m")
	m.v.SetDefault("cache.max_retries", 3)
	m.v.SetDefault("cache.pool_size", 10)
	m.v.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")
	m.v.SetDefault("logging.output", "stdout")

	// Pipeline thresholds
	m.v.SetDefault("pipeline.min_groups_for_category", 1)
	m.v.SetDefault("pipeline.medium_completeness", 0.5)
	m.v.SetDefault("pipeline.high_completeness", 0.8)
	m.v.SetDefault("pipeline.max_corrections", 3)
	m.v.SetDefault("pipeline.max_fabrication_rate", 0.30)
	m.v.SetDefault("pipeline.llm_assist_enabled", false)
	m.v.SetDefault("pipeline.external_call_timeout", "60s")

	// Rules defaults; empty path means built-in tables.
	m.v.SetDefault("rules.path", "")
	m.v.SetDefault("rules.compiled_cache_size", 8)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetExternalAPIConfig returns external AI service configuration
func (m *Manager) GetExternalAPIConfig() *domain.ExternalAPIConfig {
	return &m.config.ExternalAPI
}

// GetPipelineConfig returns the pipeline thresholds
func (m *Manager) GetPipelineConfig() domain.PipelineConfig {
	return m.config.Pipeline
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Database.Driver {
	case "sqlite":
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("invalid database driver: %s", config.Database.Driver)
	}

	if config.ExternalAPI.TextGen.BaseURL == "" {
		return fmt.Errorf("text generation base URL is required")
	}
	if config.ExternalAPI.Transcription.BaseURL == "" {
		return fmt.Errorf("transcription base URL is required")
	}
	if config.ExternalAPI.OCR.BaseURL == "" {
		return fmt.Errorf("OCR base URL is required")
	}

	if config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required")
	}

	p := config.Pipeline
	if p.MinGroupsForCategory < 1 {
		return fmt.Errorf("min_groups_for_category must be at least 1")
	}
	if p.MediumCompleteness < 0 || p.MediumCompleteness > 1 ||
		p.HighCompleteness < 0 || p.HighCompleteness > 1 ||
		p.MediumCompleteness > p.HighCompleteness {
		return fmt.Errorf("completeness thresholds must satisfy 0 <= medium <= high <= 1")
	}
	if p.MaxCorrections < 0 {
		return fmt.Errorf("max_corrections must not be negative")
	}
	if p.MaxFabricationRate < 0 || p.MaxFabricationRate > 1 {
		return fmt.Errorf("max_fabrication_rate must be between 0 and 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.v.GetString("environment")) == "production"
}
