package table

import (
	"fmt"
	"time"
)

// Config controls table capacity, turn timeouts and the presentation pauses
// between phases of a round.
type Config struct {
	MaxPlayers      int
	ResponseTimeout time.Duration
	DeckLowWater    int

	// StartDelay is the grace period between the first join and the first
	// deal, so friends joining together land in the same round.
	StartDelay      time.Duration
	DealDelay       time.Duration
	TurnDelay       time.Duration
	RevealDelay     time.Duration
	DealerDrawDelay time.Duration
	ResultDelay     time.Duration
	ReplayDelay     time.Duration
	RestartDelay    time.Duration
}

// DefaultConfig returns the settings the server runs with unless told otherwise.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:      5,
		ResponseTimeout: 30 * time.Second,
		StartDelay:      time.Second,
		DealDelay:       600 * time.Millisecond,
		TurnDelay:       400 * time.Millisecond,
		RevealDelay:     800 * time.Millisecond,
		DealerDrawDelay: 500 * time.Millisecond,
		ResultDelay:     600 * time.Millisecond,
		ReplayDelay:     200 * time.Millisecond,
		RestartDelay:    1500 * time.Millisecond,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxPlayers < 1 {
		return fmt.Errorf("max players must be at least 1, got %d", c.MaxPlayers)
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("response timeout must be positive, got %s", c.ResponseTimeout)
	}
	if c.DeckLowWater < 0 || c.DeckLowWater >= 52 {
		return fmt.Errorf("deck low water mark must be between 0 and 51, got %d", c.DeckLowWater)
	}
	for name, d := range map[string]time.Duration{
		"start delay":       c.StartDelay,
		"deal delay":        c.DealDelay,
		"turn delay":        c.TurnDelay,
		"reveal delay":      c.RevealDelay,
		"dealer draw delay": c.DealerDrawDelay,
		"result delay":      c.ResultDelay,
		"replay delay":      c.ReplayDelay,
		"restart delay":     c.RestartDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	return nil
}

// WithoutPacing returns a copy of c with every presentation pause removed,
// for bots and tests that do not need rounds slowed down for humans.
func (c Config) WithoutPacing() Config {
	c.StartDelay = 0
	c.DealDelay = 0
	c.TurnDelay = 0
	c.RevealDelay = 0
	c.DealerDrawDelay = 0
	c.ResultDelay = 0
	c.ReplayDelay = 0
	c.RestartDelay = 0
	return c
}
