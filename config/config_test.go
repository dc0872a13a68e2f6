package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("relay.webhook_url", "https://discord.com/api/webhooks/1/tok")
	v.Set("feeds", map[string]any{
		"main": map[string]any{
			"database":      "weibo/weibodata.db",
			"state_file":    "data/sent.json",
			"owner_user_id": "1001",
		},
		"backup": map[string]any{
			"name":       "Backup account",
			"database":   "weibo/backup.db",
			"state_file": "data/backup.json",
		},
	})
	return v
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := Decode(validViper())
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Relay.Feed)
	assert.Equal(t, "fixed", cfg.Relay.Pacer)
	assert.Equal(t, 2*time.Second, cfg.Relay.Pace)
	assert.True(t, cfg.Relay.ResendEnabled)
	assert.Equal(t, "json", cfg.State.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"backup", "main"}, FeedNames(cfg))

	feed, err := SelectedFeed(cfg)
	require.NoError(t, err)
	assert.Equal(t, "main", feed.Name)
	assert.Equal(t, "1001", feed.OwnerUserID)

	backup, err := Feed(cfg, "backup")
	require.NoError(t, err)
	assert.Equal(t, "Backup account", backup.Name)
}

func TestDecode_Overrides(t *testing.T) {
	v := validViper()
	v.Set("relay.pace", "500ms")
	v.Set("relay.pacer", "rate")
	v.Set("relay.resend_enabled", false)
	v.Set("state.driver", "sqlite")

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Relay.Pace)
	assert.Equal(t, "rate", cfg.Relay.Pacer)
	assert.False(t, cfg.Relay.ResendEnabled)
	assert.Equal(t, "sqlite", cfg.State.Driver)
}

func TestDecode_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("relay.feed", "missing")
	v.Set("relay.pacer", "burst")
	v.Set("state.driver", "redis")

	_, err := Decode(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.webhook_url is required")
	assert.Contains(t, err.Error(), `unknown feed "missing"`)
	assert.Contains(t, err.Error(), `unknown relay.pacer "burst"`)
	assert.Contains(t, err.Error(), `unknown state.driver "redis"`)
}

func TestFeed_RequiresPaths(t *testing.T) {
	v := validViper()
	v.Set("feeds", map[string]any{"main": map[string]any{"database": "weibo.db"}})
	v.Set("relay.feed", "main")

	_, err := Decode(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no state_file")
}
