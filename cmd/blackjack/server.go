package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/table"
	"golang.org/x/sync/errgroup"
)

// ServerCmd runs the table server. Flags override the config file.
type ServerCmd struct {
	Config          string        `kong:"default='blackjack.hcl',help='HCL config file (defaults apply if it does not exist)'"`
	Addr            string        `kong:"help='Server address, e.g. :8080 (overrides config)'"`
	Debug           bool          `kong:"help='Enable debug logging'"`
	JSONLogs        bool          `kong:"name='json-logs',help='Log structured JSON instead of console output'"`
	MaxPlayers      int           `kong:"help='Seats per table (overrides config)'"`
	ResponseTimeout time.Duration `kong:"help='Time a player has to answer a prompt (overrides config)'"`
	NoPacing        bool          `kong:"help='Skip the presentation pauses between phases'"`
	Seed            *int64        `kong:"help='Deterministic RNG seed for shuffles and table codes (optional)'"`
	StatsFile       string        `kong:"help='Write a JSON stats snapshot to this file on shutdown'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.MaxPlayers > 0 {
		cfg.Table.MaxPlayers = c.MaxPlayers
	}
	if c.ResponseTimeout > 0 {
		cfg.Table.ResponseTimeout = c.ResponseTimeout.String()
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.Config, err)
	}

	logger, err := shared.NewLogger(cfg.Server.LogLevel, c.JSONLogs)
	if err != nil {
		return err
	}

	tables, err := cfg.TableConfig()
	if err != nil {
		return err
	}
	if c.NoPacing {
		tables = tables.WithoutPacing()
	}

	seed := randutil.Seed(c.Seed)
	if c.Seed != nil {
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		logger.Info().Int64("seed", seed).Msg("Using random seed")
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	registry := table.NewRegistry(logger, tables, table.WithRand(randutil.New(seed)))
	srv := server.NewServer(logger, registry)

	logger.Info().
		Str("address", addr).
		Int("max_players", tables.MaxPlayers).
		Dur("response_timeout", tables.ResponseTimeout).
		Bool("pacing", !c.NoPacing).
		Msg("Starting blackjack server")

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if c.StatsFile != "" {
			if err := srv.SaveStats(c.StatsFile); err != nil {
				logger.Error().Err(err).Msg("Failed to save stats")
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
