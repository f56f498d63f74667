// ABOUTME: Centralized configuration for the letter streaming proxy
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the proxy
type Config struct {
	// HTTP server settings
	Port int

	// Charm settings
	CharmHost   string
	CharmDBName string
	AutoSync    bool

	// Upstream LLM settings
	UpstreamAPIKey  string
	UpstreamBaseURL string
	ChatModel       string
	BodyModel       string
	UpstreamTimeout time.Duration

	// Cache settings
	CacheTTLHours int

	// Narrative chunk origin
	ChunkOriginURL string
	OriginRetries  int
	RetryDelay     time.Duration

	// Audit store (empty path disables the relational store)
	AuditDBPath string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnvInt("PORT", 8787),
		CharmHost:       getEnv("CHARM_HOST", "charm.2389.dev"),
		CharmDBName:     getEnv("CHARM_DB", "letterstream"),
		AutoSync:        getEnvBool("CHARM_AUTO_SYNC", true),
		UpstreamAPIKey:  os.Getenv("OPENAI_API_KEY"),
		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", ""),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		BodyModel:       getEnv("BODY_MODEL", "gpt-4o"),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 60*time.Second),
		CacheTTLHours:   getEnvInt("CACHE_TTL_HOURS", 24),
		ChunkOriginURL:  getEnv("CHUNK_ORIGIN_URL", ""),
		OriginRetries:   getEnvInt("CHUNK_ORIGIN_RETRIES", 3),
		RetryDelay:      getEnvDuration("CHUNK_ORIGIN_RETRY_DELAY", 2*time.Second),
		AuditDBPath:     getEnv("AUDIT_DB_PATH", ""),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be 1-65535, got %d", c.Port)
	}
	if c.CacheTTLHours < 1 {
		return fmt.Errorf("CACHE_TTL_HOURS must be positive, got %d", c.CacheTTLHours)
	}
	if c.OriginRetries < 0 || c.OriginRetries > 10 {
		return fmt.Errorf("CHUNK_ORIGIN_RETRIES must be 0-10, got %d", c.OriginRetries)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
