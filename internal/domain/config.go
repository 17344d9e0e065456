package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	ExternalAPI ExternalAPIConfig `mapstructure:"external_api"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Rules       RulesConfig       `mapstructure:"rules"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// DatabaseConfig represents the feedback database connection configuration.
// Driver selects the backend: "sqlite" (single-node) or "postgres".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExternalAPIConfig represents external AI service configuration
type ExternalAPIConfig struct {
	TextGen       TextGenConfig       `mapstructure:"textgen"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	OCR           OCRConfig           `mapstructure:"ocr"`
}

// TextGenConfig represents the text-generation service configuration.
// Temperature stays near zero: report prose must not invent content.
type TextGenConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   int           `mapstructure:"rate_limit"`
}

// TranscriptionConfig represents the speech-to-text service configuration
type TranscriptionConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Language  string        `mapstructure:"language"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// OCRConfig represents the document OCR service configuration
type OCRConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Region    string        `mapstructure:"region"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// CacheConfig represents the redis cache used for feedback aggregates and
// health-check results. Patient data is never cached.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// PipelineConfig holds the product thresholds of the report pipeline. These
// are deliberate, documented decisions rather than code constants: they are
// the primary tuning surface of the system.
type PipelineConfig struct {
	// MinGroupsForCategory is the minimum distinct keyword groups a category
	// must match before it can win; below it the classifier falls back to
	// CLINICA_GERAL.
	MinGroupsForCategory int `mapstructure:"min_groups_for_category"`
	// MediumCompleteness and HighCompleteness are the confidence cut points
	// between LOW/MEDIUM/HIGH extraction completeness.
	MediumCompleteness float64 `mapstructure:"medium_completeness"`
	HighCompleteness   float64 `mapstructure:"high_completeness"`
	// MaxCorrections is the number of validator corrections above which the
	// draft is discarded in favor of the safe template.
	MaxCorrections int `mapstructure:"max_corrections"`
	// MaxFabricationRate is the flagged/total sensitive-term ratio above which
	// the draft is discarded.
	MaxFabricationRate float64 `mapstructure:"max_fabrication_rate"`
	// LLMAssistEnabled turns on the second-pass LLM field extraction for
	// fields the pattern rules left unfilled.
	LLMAssistEnabled bool `mapstructure:"llm_assist_enabled"`
	// ExternalCallTimeout bounds each transcription/OCR/generation call.
	ExternalCallTimeout time.Duration `mapstructure:"external_call_timeout"`
}

// RulesConfig points at the externally editable rule tables.
type RulesConfig struct {
	// Path of the YAML rules file. Empty means built-in defaults only.
	Path string `mapstructure:"path"`
	// CompiledCacheSize bounds the LRU of compiled rule sets kept in memory.
	CompiledCacheSize int `mapstructure:"compiled_cache_size"`
}
