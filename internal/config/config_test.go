package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FEED_POLL_INTERVAL", "3s")
	t.Setenv("SESSION_ID", "session-1")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.FeedPollInterval)
	assert.Equal(t, DefaultStatusGID, cfg.StatusGID)
	assert.Equal(t, "session-1", cfg.SessionID)
	assert.Equal(t, 30*time.Second, cfg.MatchTimeout)
	assert.Equal(t, "entry.310430013", cfg.FormEntryName)
	assert.Equal(t, "MDY", cfg.SheetDateOrder)
}

func TestLoad_DurationSecondsAndClamp(t *testing.T) {
	t.Setenv("SERVING_POLL_INTERVAL", "5")
	t.Setenv("FEED_POLL_INTERVAL", "10m")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.ServingPollInterval)
	assert.Equal(t, MaxPollInterval, cfg.FeedPollInterval)
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{SheetTimezone: "UTC"}
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.SheetTimezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
