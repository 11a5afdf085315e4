package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Preview   PreviewConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Events    EventsConfig
	Templates TemplatesConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigins  []string      `split_words:"true" default:"*"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	MaxBodyBytes    int64         `split_words:"true" default:"1048576"`
}

// LLMConfig holds the Ollama-style completion endpoint settings.
type LLMConfig struct {
	BaseURL      string        `split_words:"true" default:"http://localhost:11434"`
	Model        string        `default:"llama3"`
	Timeout      time.Duration `default:"120s"`
	ProbeTimeout time.Duration `split_words:"true" default:"3s"`
	Temperature  float64       `default:"0.7"`
	NumPredict   int           `split_words:"true" default:"2048"`
	TopP         float64       `split_words:"true" default:"0"`
	Stop         []string
	MaxRetries   int     `split_words:"true" default:"2"`
	RateLimit    float64 `split_words:"true" default:"0"`
}

// PreviewConfig holds renderer and verification settings.
type PreviewConfig struct {
	VerifyScripts   bool          `split_words:"true" default:"true"`
	SandboxTimeout  time.Duration `split_words:"true" default:"2s"`
	SandboxPoolSize int           `split_words:"true" default:"2"`
	MobileWidth     string        `split_words:"true" default:"375px"`
	TabletWidth     string        `split_words:"true" default:"768px"`
}

// StorageConfig selects the key-value store backend.
type StorageConfig struct {
	Backend     string `default:"memory"`
	RedisURL    string `split_words:"true" default:"redis://localhost:6379/0"`
	PostgresDSN string `split_words:"true"`
	Namespace   string `default:"uibuilder"`
}

// CacheConfig sizes the in-process LRU caches.
type CacheConfig struct {
	NormalizerSize int `split_words:"true" default:"256"`
	DocumentSize   int `split_words:"true" default:"128"`
}

// EventsConfig configures event publishing. An empty URL disables it.
type EventsConfig struct {
	URL           string
	SubjectPrefix string `split_words:"true" default:"uibuilder"`
}

// TemplatesConfig locates the component template gallery.
type TemplatesConfig struct {
	Dir     string `default:"templates"`
	Pattern string `default:"**/*.{yaml,yml,json}"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load reads configuration from the environment. A .env file in the
// working directory and the file named by CONFIG_FILE (YAML or TOML) only
// fill variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := ApplyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		LLM: LLMConfig{
			BaseURL:      "http://localhost:11434",
			Model:        "llama3",
			Timeout:      120 * time.Second,
			ProbeTimeout: 3 * time.Second,
			Temperature:  0.7,
			NumPredict:   2048,
			MaxRetries:   2,
		},
		Preview: PreviewConfig{
			VerifyScripts:   true,
			SandboxTimeout:  2 * time.Second,
			SandboxPoolSize: 2,
			MobileWidth:     "375px",
			TabletWidth:     "768px",
		},
		Storage: StorageConfig{
			Backend:   "memory",
			RedisURL:  "redis://localhost:6379/0",
			Namespace: "uibuilder",
		},
		Cache: CacheConfig{
			NormalizerSize: 256,
			DocumentSize:   128,
		},
		Events: EventsConfig{
			SubjectPrefix: "uibuilder",
		},
		Templates: TemplatesConfig{
			Dir:     "templates",
			Pattern: "**/*.{yaml,yml,json}",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
