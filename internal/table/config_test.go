package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, fastConfig().Validate())

	cfg := DefaultConfig()
	cfg.MaxPlayers = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ResponseTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DeckLowWater = 52
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RevealDelay = -time.Millisecond
	assert.Error(t, cfg.Validate())
}

func TestConfigWithoutPacing(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().WithoutPacing()
	assert.Equal(t, 5, cfg.MaxPlayers)
	assert.Equal(t, 30*time.Second, cfg.ResponseTimeout)
	assert.Zero(t, cfg.StartDelay)
	assert.Zero(t, cfg.RestartDelay)
	assert.Zero(t, cfg.DealerDrawDelay)
}
