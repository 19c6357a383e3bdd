package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Synthesis modes.
const (
	// ModeStrict fails requests with 503 when the TTS backend is missing.
	ModeStrict = "strict"
	// ModeFallback serves tone audio from the built-in synthesizer instead.
	ModeFallback = "fallback"
)

// Config holds all application configuration.
type Config struct {
	// HTTP settings
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8001"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"10485760"`

	// Artifact settings
	WorkDir string `env:"WORK_DIR" envDefault:"."`

	// TTS settings
	Mode           string `env:"TTS_MODE" envDefault:"strict"`
	Backend        string `env:"TTS_BACKEND" envDefault:"voicify"`
	VoicifyPath    string `env:"VOICIFY_PATH" envDefault:"voicify"`
	VoicifyOutput  string `env:"VOICIFY_OUTPUT" envDefault:"output.wav"`
	PiperPath      string `env:"PIPER_PATH" envDefault:"piper"`
	PiperModel     string `env:"PIPER_MODEL"`
	InstallCommand string `env:"INSTALL_COMMAND" envDefault:"pip install voicify"`
	QueueCapacity  int    `env:"QUEUE_CAPACITY" envDefault:"100"`

	// Logging settings
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment, after loading an optional
// .env file from the current directory.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FallbackEnabled reports whether the built-in synthesizer stands in for a
// missing backend.
func (c *Config) FallbackEnabled() bool {
	return c.Mode == ModeFallback
}

// RateLimitEnabled reports whether request rate limiting is on.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}

	if c.WorkDir == "" {
		return errors.New("WORK_DIR must not be empty")
	}

	if c.Mode != ModeStrict && c.Mode != ModeFallback {
		return errors.New("TTS_MODE must be one of: strict, fallback")
	}

	validBackends := map[string]bool{"voicify": true, "piper": true, "mock": true}
	if !validBackends[c.Backend] {
		return errors.New("TTS_BACKEND must be one of: voicify, piper, mock")
	}

	if c.VoicifyOutput == "" {
		return errors.New("VOICIFY_OUTPUT must not be empty")
	}

	if c.QueueCapacity < 1 {
		return errors.New("QUEUE_CAPACITY must be at least 1")
	}

	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must be non-negative")
	}

	if c.RateLimitEnabled() && c.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}

	if c.MaxBodyBytes < 1 {
		return errors.New("MAX_BODY_BYTES must be at least 1")
	}

	if c.ShutdownTimeout < 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be non-negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}
