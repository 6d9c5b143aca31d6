// Package config loads service configuration from environment variables and
// the project catalog from a YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Azure Language service (NLU + question answering share endpoint and key)
	ServiceEndpoint string `envconfig:"LS_CONVERSATIONS_ENDPOINT"`
	ServiceKey      string `envconfig:"LS_CONVERSATIONS_KEY"`
	QADeployment    string `envconfig:"QA_DEPLOYMENT_NAME" default:"production"`
	NLUProject      string `envconfig:"NLU_PROJECT_NAME" default:"Clock"`
	NLUDeployment   string `envconfig:"NLU_DEPLOYMENT_NAME" default:"production"`
	Language        string `envconfig:"NLU_LANGUAGE" default:"en-us"`

	// Project catalog (projects, routing keywords, example questions).
	// Empty path falls back to the built-in catalog.
	ProjectsFile string `envconfig:"PROJECTS_FILE"`

	// Sessions
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	MaxSessions int           `envconfig:"MAX_SESSIONS" default:"1000"`

	// Answer cache
	AnswerCacheSize int           `envconfig:"ANSWER_CACHE_SIZE" default:"256"`
	AnswerCacheTTL  time.Duration `envconfig:"ANSWER_CACHE_TTL" default:"10m"`

	// Outbound collaborator calls
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	RetryAttempts   int           `envconfig:"RETRY_ATTEMPTS" default:"3"`

	// API surface
	AuthMode       string `envconfig:"API_AUTH_MODE" default:"none"` // "none", "api-key", "jwt"
	APIKey         string `envconfig:"API_KEY"`
	JWTSecret      string `envconfig:"API_JWT_SECRET"`
	RateLimitRPS   int    `envconfig:"API_RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int    `envconfig:"API_RATE_LIMIT_BURST" default:"100"`
	CORSOrigins    string `envconfig:"API_CORS_ORIGINS"`
}

// LanguageConfigured returns true if the Azure Language endpoint and key are set.
func (c *Config) LanguageConfigured() bool {
	return c.ServiceEndpoint != "" && c.ServiceKey != ""
}

// Validate checks the parts of the configuration that cannot be defaulted.
func (c *Config) Validate() error {
	if !c.LanguageConfigured() {
		return fmt.Errorf("LS_CONVERSATIONS_ENDPOINT and LS_CONVERSATIONS_KEY are required")
	}
	switch c.AuthMode {
	case "none":
	case "api-key":
		if c.APIKey == "" {
			return fmt.Errorf("API_KEY is required when API_AUTH_MODE=api-key")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("API_JWT_SECRET is required when API_AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("unknown API_AUTH_MODE %q", c.AuthMode)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
