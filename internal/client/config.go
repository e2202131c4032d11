package client

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
)

// ClientConfig represents the complete client configuration
type ClientConfig struct {
	Server ServerConnection `hcl:"server,block"`
	Player PlayerSettings   `hcl:"player,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	ConnectTimeout int    `hcl:"connect_timeout,optional"`
}

// PlayerSettings controls how the client plays.
type PlayerSettings struct {
	Auto     bool   `hcl:"auto,optional"`
	Rounds   int    `hcl:"rounds,optional"`
	StandOn  int    `hcl:"stand_on,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server: ServerConnection{
			URL:            "ws://localhost:8080/ws",
			ConnectTimeout: 10,
		},
		Player: PlayerSettings{
			Rounds:   1,
			StandOn:  DefaultStandOn,
			LogLevel: "warn",
		},
	}
}

// LoadClientConfig loads client configuration from an HCL file. A missing
// file yields the defaults.
func LoadClientConfig(filename string) (*ClientConfig, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return DefaultClientConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ClientConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultClientConfig()
	if config.Server.URL == "" {
		config.Server.URL = defaults.Server.URL
	}
	if config.Server.ConnectTimeout == 0 {
		config.Server.ConnectTimeout = defaults.Server.ConnectTimeout
	}
	if config.Player.Rounds == 0 {
		config.Player.Rounds = defaults.Player.Rounds
	}
	if config.Player.StandOn == 0 {
		config.Player.StandOn = defaults.Player.StandOn
	}
	if config.Player.LogLevel == "" {
		config.Player.LogLevel = defaults.Player.LogLevel
	}

	return &config, nil
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if _, err := NormalizeURL(c.Server.URL); err != nil {
		return err
	}
	if c.Server.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.Player.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	if c.Player.StandOn < 2 || c.Player.StandOn > 21 {
		return fmt.Errorf("stand_on must be between 2 and 21, got %d", c.Player.StandOn)
	}
	if _, err := zerolog.ParseLevel(c.Player.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Player.LogLevel)
	}
	return nil
}
