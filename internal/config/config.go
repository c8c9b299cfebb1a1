// Package config loads the runtime's configuration.
package config

import (
	"fmt"

	"github.com/voss/swarmtool/internal/logger"
)

// Config is the top-level swarmtool configuration.
type Config struct {
	// ToolsDir is the tool store directory, one file per tool.
	ToolsDir string `json:"tools_dir" mapstructure:"tools_dir"`

	// DataDir holds logs and other runtime state.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// WatchStore enables rebuilding the namespace when tool files change on
	// disk outside the runtime.
	WatchStore bool `json:"watch_store" mapstructure:"watch_store"`

	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`
	Scrape  ScrapeConfig  `json:"scrape" mapstructure:"scrape"`
	Peer    PeerConfig    `json:"peer" mapstructure:"peer"`
	Logging logger.Config `json:"logging" mapstructure:"logging"`
}

// GatewayConfig holds the peer messaging server settings. The endpoint is
// unauthenticated; bind it to loopback unless the whole network is trusted.
type GatewayConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Bind    string `json:"bind" mapstructure:"bind"`
	Port    int    `json:"port" mapstructure:"port"`
}

// ScrapeConfig holds scrape_url settings.
type ScrapeConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	WordLimit      int `json:"word_limit" mapstructure:"word_limit"`
}

// PeerConfig holds outbound peer client settings.
type PeerConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ToolsDir:   "tools",
		WatchStore: true,
		Gateway: GatewayConfig{
			Enabled: true,
			Bind:    "127.0.0.1",
			Port:    8080,
		},
		Scrape: ScrapeConfig{
			TimeoutSeconds: 30,
			WordLimit:      200,
		},
		Peer: PeerConfig{
			TimeoutSeconds: 30,
		},
		Logging: logger.DefaultConfig(),
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.ToolsDir == "" {
		return fmt.Errorf("tools_dir is required")
	}
	if c.Gateway.Enabled && (c.Gateway.Port <= 0 || c.Gateway.Port > 65535) {
		return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
	}
	if c.Scrape.WordLimit < 0 {
		return fmt.Errorf("scrape word_limit must be non-negative")
	}
	return nil
}
