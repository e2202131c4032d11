package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/protocol"
)

// ClientCmd connects to a server, takes a seat and plays, either from the
// keyboard or automatically.
type ClientCmd struct {
	Config  string `kong:"default='blackjack-client.hcl',help='HCL client config file (defaults apply if it does not exist)'"`
	Server  string `kong:"help='Server URL (overrides config)'"`
	Join    string `kong:"help='Code of the table to join; a new table is created when empty'"`
	Auto    bool   `kong:"help='Play automatically instead of reading the keyboard'"`
	Rounds  int    `kong:"help='Rounds to play before leaving in auto mode (overrides config)'"`
	StandOn int    `kong:"name='stand-on',help='Auto mode stands at this total or above (overrides config)'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Server != "" {
		cfg.Server.URL = strings.TrimSpace(c.Server)
	}
	if c.Auto {
		cfg.Player.Auto = true
	}
	if c.Rounds > 0 {
		cfg.Player.Rounds = c.Rounds
	}
	if c.StandOn > 0 {
		cfg.Player.StandOn = c.StandOn
	}
	if c.Debug {
		cfg.Player.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}

	logger, err := shared.NewLogger(cfg.Player.LogLevel, false)
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandlerWithLogger(logger)

	cl := client.New(cfg.Server.URL, logger)
	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ConnectTimeout)*time.Second)
	defer cancel()
	if err := cl.Connect(dialCtx); err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	first := protocol.CmdCreate
	if code := strings.TrimSpace(c.Join); code != "" {
		first = protocol.CmdJoin + " " + code
	}
	if err := cl.Send(first); err != nil {
		return err
	}

	if cfg.Player.Auto {
		player := client.NewAutoPlayer(cfg.Player.Rounds, cfg.Player.StandOn, logger)
		if err := cl.Run(ctx, player.Handle, nil); err != nil {
			return err
		}
		if reason := player.Rejected(); reason != "" {
			return fmt.Errorf("server refused a seat: %s", reason)
		}
		fmt.Printf("Played %d rounds at table %s: %s\n", len(player.Results()), player.Table(), summarize(player.Results()))
		return nil
	}

	renderer := client.NewRenderer(os.Stdout)
	fmt.Println("Type HIT, STAND, YES or NO when prompted. Ctrl-C quits.")
	return cl.Run(ctx, renderer.Handle, os.Stdin)
}

func summarize(results []protocol.Outcome) string {
	counts := map[protocol.Outcome]int{}
	for _, r := range results {
		counts[r]++
	}
	return fmt.Sprintf("%d won, %d lost, %d pushed", counts[protocol.Win], counts[protocol.Lose], counts[protocol.Push])
}
