// Package config loads the blackjack server's HCL configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/blackjack/internal/table"
	"github.com/rs/zerolog"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings
	Table  TableSettings
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableSettings configures every table the server opens. Durations use Go
// syntax, e.g. "30s" or "750ms".
type TableSettings struct {
	MaxPlayers      int    `hcl:"max_players,optional"`
	ResponseTimeout string `hcl:"response_timeout,optional"`
	DeckLowWater    int    `hcl:"deck_low_water,optional"`
	StartDelay      string `hcl:"start_delay,optional"`
	DealDelay       string `hcl:"deal_delay,optional"`
	TurnDelay       string `hcl:"turn_delay,optional"`
	RevealDelay     string `hcl:"reveal_delay,optional"`
	DealerDrawDelay string `hcl:"dealer_draw_delay,optional"`
	ResultDelay     string `hcl:"result_delay,optional"`
	ReplayDelay     string `hcl:"replay_delay,optional"`
	RestartDelay    string `hcl:"restart_delay,optional"`
}

// hclFile is the on-disk shape; either block may be omitted.
type hclFile struct {
	Server *ServerSettings `hcl:"server,block"`
	Table  *TableSettings  `hcl:"table,block"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	d := table.DefaultConfig()
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Table: TableSettings{
			MaxPlayers:      d.MaxPlayers,
			ResponseTimeout: d.ResponseTimeout.String(),
			DeckLowWater:    d.DeckLowWater,
			StartDelay:      d.StartDelay.String(),
			DealDelay:       d.DealDelay.String(),
			TurnDelay:       d.TurnDelay.String(),
			RevealDelay:     d.RevealDelay.String(),
			DealerDrawDelay: d.DealerDrawDelay.String(),
			ResultDelay:     d.ResultDelay.String(),
			ReplayDelay:     d.ReplayDelay.String(),
			RestartDelay:    d.RestartDelay.String(),
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file.Body)
}

// ParseServerConfig parses configuration from HCL source held in memory.
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*ServerConfig, error) {
	var file hclFile
	if diags := gohcl.DecodeBody(body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := DefaultServerConfig()
	if s := file.Server; s != nil {
		if s.Address != "" {
			config.Server.Address = s.Address
		}
		if s.Port != 0 {
			config.Server.Port = s.Port
		}
		if s.LogLevel != "" {
			config.Server.LogLevel = s.LogLevel
		}
	}
	if t := file.Table; t != nil {
		if t.MaxPlayers != 0 {
			config.Table.MaxPlayers = t.MaxPlayers
		}
		if t.DeckLowWater != 0 {
			config.Table.DeckLowWater = t.DeckLowWater
		}
		for _, f := range []struct {
			dst *string
			src string
		}{
			{&config.Table.ResponseTimeout, t.ResponseTimeout},
			{&config.Table.StartDelay, t.StartDelay},
			{&config.Table.DealDelay, t.DealDelay},
			{&config.Table.TurnDelay, t.TurnDelay},
			{&config.Table.RevealDelay, t.RevealDelay},
			{&config.Table.DealerDrawDelay, t.DealerDrawDelay},
			{&config.Table.ResultDelay, t.ResultDelay},
			{&config.Table.ReplayDelay, t.ReplayDelay},
			{&config.Table.RestartDelay, t.RestartDelay},
		} {
			if f.src != "" {
				*f.dst = f.src
			}
		}
	}
	return config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}
	tc, err := c.TableConfig()
	if err != nil {
		return err
	}
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfig converts the table block into the engine's settings.
func (c *ServerConfig) TableConfig() (table.Config, error) {
	t := c.Table
	tc := table.Config{
		MaxPlayers:   t.MaxPlayers,
		DeckLowWater: t.DeckLowWater,
	}
	for _, f := range []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"response_timeout", t.ResponseTimeout, &tc.ResponseTimeout},
		{"start_delay", t.StartDelay, &tc.StartDelay},
		{"deal_delay", t.DealDelay, &tc.DealDelay},
		{"turn_delay", t.TurnDelay, &tc.TurnDelay},
		{"reveal_delay", t.RevealDelay, &tc.RevealDelay},
		{"dealer_draw_delay", t.DealerDrawDelay, &tc.DealerDrawDelay},
		{"result_delay", t.ResultDelay, &tc.ResultDelay},
		{"replay_delay", t.ReplayDelay, &tc.ReplayDelay},
		{"restart_delay", t.RestartDelay, &tc.RestartDelay},
	} {
		if f.src == "" {
			continue
		}
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return table.Config{}, fmt.Errorf("table %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return tc, nil
}
