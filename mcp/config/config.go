// Package config loads runtime knobs for an mcp peer from environment
// variables, the way the teacher's internal/config loads the OAuth
// proxy's settings: a flat struct, sensible defaults, and a single Load
// entry point.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/modelcontext/mcp-go/mcp"
)

// Config holds the runtime knobs shared by mcp/server and mcp/client.
type Config struct {
	// PageSize is loaded and validated but not read by the registries,
	// which always page by registry.DefaultPageSize (50).
	PageSize int

	// RequestTimeout bounds how long a peer waits for a response to an
	// outbound request before the pending table cancels the awaiter.
	RequestTimeout time.Duration

	// ProtocolVersions is a copy of mcp.SupportedVersions, most preferred
	// first. Version negotiation (mcp.NegotiateVersion) reads
	// mcp.SupportedVersions directly, not this field.
	ProtocolVersions []string

	// ResourceUpdateBufferSize is loaded and validated but not read by the
	// registries: the resources/updated signal buffer is fixed at 64
	// URIs, and on overflow the oldest queued URI is dropped.
	ResourceUpdateBufferSize int
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	pageSize, err := parseIntWithDefault("MCP_PAGE_SIZE", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_PAGE_SIZE: %w", err)
	}

	requestTimeout, err := parseDurationWithDefault("MCP_REQUEST_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_REQUEST_TIMEOUT: %w", err)
	}

	bufferSize, err := parseIntWithDefault("MCP_RESOURCE_UPDATE_BUFFER_SIZE", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_RESOURCE_UPDATE_BUFFER_SIZE: %w", err)
	}

	cfg := &Config{
		PageSize:                 pageSize,
		RequestTimeout:           requestTimeout,
		ProtocolVersions:         append([]string(nil), mcp.SupportedVersions...),
		ResourceUpdateBufferSize: bufferSize,
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that would make a peer misbehave.
func Validate(cfg *Config) error {
	if cfg.PageSize <= 0 {
		return fmt.Errorf("config: PageSize must be positive, got %d", cfg.PageSize)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("config: RequestTimeout must be positive, got %v", cfg.RequestTimeout)
	}
	if len(cfg.ProtocolVersions) == 0 {
		return fmt.Errorf("config: ProtocolVersions must not be empty")
	}
	if cfg.ResourceUpdateBufferSize <= 0 {
		return fmt.Errorf("config: ResourceUpdateBufferSize must be positive, got %d", cfg.ResourceUpdateBufferSize)
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationWithDefault(key, defaultValue string) (time.Duration, error) {
	value := getEnvWithDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse duration %q: %w", value, err)
	}
	return duration, nil
}

func parseIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse integer %q: %w", value, err)
	}
	return n, nil
}

// String returns a debug representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{PageSize: %d, RequestTimeout: %v, ProtocolVersions: %v, ResourceUpdateBufferSize: %d}",
		c.PageSize, c.RequestTimeout, c.ProtocolVersions, c.ResourceUpdateBufferSize)
}
