package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"weibo-relay/bot"
	"weibo-relay/models"
	"weibo-relay/relay"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredLevel(t *testing.T) {
	assert.Equal(t, "admin", requiredLevel("relay", "run"))
	assert.Equal(t, "guest", requiredLevel("relay", "status"))
	assert.Equal(t, "guest", requiredLevel("ping", ""))
	assert.Equal(t, "developer", requiredLevel("relay", "purge"))
}

func TestSubcommandOptions(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "status",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "post", Type: discordgo.ApplicationCommandOptionString, Value: "NxYz"},
			{Name: "feed", Type: discordgo.ApplicationCommandOptionString, Value: "backup"},
		},
	}}

	sub, inner := subcommand(options)
	assert.Equal(t, "status", sub)
	assert.Equal(t, "NxYz", optionString(inner, "post"))
	assert.Equal(t, "backup", optionString(inner, "feed"))
	assert.Equal(t, "", optionString(inner, "missing"))

	sub, _ = subcommand(nil)
	assert.Equal(t, "", sub)
}

func TestRunFollowup(t *testing.T) {
	assert.Contains(t, runFollowup("main", nil, relay.ErrRunInProgress), "already in progress")
	assert.Contains(t, runFollowup("main", nil, errors.New("disk full")), "disk full")

	ok := runFollowup("main", &relay.RunReport{Total: 3, Created: 1, Resent: 1, Skipped: 1}, nil)
	assert.Contains(t, ok, "✅")
	assert.Contains(t, ok, "3 posts, 1 created, 1 resent, 1 skipped, 0 failed")

	report := &relay.RunReport{Total: 7}
	for i := 0; i < 7; i++ {
		report.Failed = append(report.Failed, &relay.PostError{PostID: fmt.Sprint(i), Step: "create thread", Err: errors.New("HTTP 500")})
	}
	failed := runFollowup("main", report, report.Err())
	assert.Contains(t, failed, "⚠️")
	assert.Contains(t, failed, "post 4")
	assert.NotContains(t, failed, "post 5")
	assert.Contains(t, failed, "and 2 more")
}

func TestFormatRecord(t *testing.T) {
	rec := models.DeliveryRecord{
		PostID:     "1",
		BusinessID: "A",
		MessageRef: "m1",
		Status:     models.StatusSent,
		UpdatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	out := formatRecord(rec)
	assert.Contains(t, out, "**SENT**")
	assert.Contains(t, out, "`m1`")
	assert.Contains(t, out, fmt.Sprintf("<t:%d:R>", rec.UpdatedAt.Unix()))
}

func TestFeedChoices(t *testing.T) {
	feeds := []string{"backup", "main", "mirror"}

	all := feedChoices(feeds, "")
	require.Len(t, all, 3)
	assert.Equal(t, "backup", all[0].Value)

	filtered := feedChoices(feeds, "M")
	require.Len(t, filtered, 2)
	assert.Equal(t, "main", filtered[0].Name)
	assert.Equal(t, "mirror", filtered[1].Name)

	many := make([]string, 40)
	for i := range many {
		many[i] = fmt.Sprintf("feed-%02d", i)
	}
	assert.Len(t, feedChoices(many, "feed"), maxChoices)
}

func TestRunFeed_StopsWhenBotContextEnds(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "weibo.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE weibo (id TEXT, bid TEXT, user_id TEXT, text TEXT, pics TEXT, video_url TEXT,
        created_at TEXT, source TEXT, reposts_count INTEGER, comments_count INTEGER, attitudes_count INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := &models.Config{
		Relay: models.RelayConfig{Feed: "main", WebhookURL: "https://discord.com/api/webhooks/1/tok"},
		Feeds: map[string]models.FeedConfig{
			"main": {Database: dbPath, StateFile: filepath.Join(dir, "sent.json")},
		},
	}
	runner, err := bot.NewFeedRunner(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	b, err := bot.NewBot(ctx, "token", runner, nil)
	require.NoError(t, err)
	cancel()

	out := runFeed(b, "main")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, context.Canceled.Error())
}
