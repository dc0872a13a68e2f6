package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"weibo-relay/bot"
	"weibo-relay/models"
	"weibo-relay/relay"
	"weibo-relay/utils"

	"github.com/bwmarrin/discordgo"
)

// maxReportedFailures limits how many failed posts a followup lists.
const maxReportedFailures = 5

// HandleRelayRun handles the logic for the /relay run command.
func HandleRelayRun(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, options := subcommand(i.ApplicationCommandData().Options)
	feed := optionString(options, "feed")
	if feed == "" {
		feed = b.Runner.DefaultFeed()
	}

	// Respond to the interaction immediately.
	respondEphemeral(s, i, fmt.Sprintf("Received command to relay feed **%s**. Starting...", feed))

	// Run the relay in a goroutine.
	go func() {
		s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: runFeed(b, feed),
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	}()
}

// runFeed runs the feed under the bot's lifetime and describes the result.
func runFeed(b *bot.Bot, feed string) string {
	utils.Info("handlers", "relay run", "Starting manual relay run for feed "+feed)
	report, err := b.Runner.RunFeed(b.Context(), feed)
	return runFollowup(feed, report, err)
}

// runFollowup describes the result of a manual run.
func runFollowup(feed string, report *relay.RunReport, err error) string {
	if report == nil {
		if errors.Is(err, relay.ErrRunInProgress) {
			return "⏳ A relay run is already in progress. Try again later."
		}
		return fmt.Sprintf("❌ Relay for feed **%s** failed: %v", feed, err)
	}

	var sb strings.Builder
	icon := "✅"
	if len(report.Failed) > 0 {
		icon = "⚠️"
	}
	fmt.Fprintf(&sb, "%s Relay for feed **%s** has completed: %d posts, %d created, %d resent, %d skipped, %d failed.",
		icon, feed, report.Total, report.Created, report.Resent, report.Skipped, len(report.Failed))
	for idx, failure := range report.Failed {
		if idx == maxReportedFailures {
			fmt.Fprintf(&sb, "\n… and %d more", len(report.Failed)-maxReportedFailures)
			break
		}
		fmt.Fprintf(&sb, "\n- `%s`", failure.Error())
	}
	return sb.String()
}

// HandleRelayStatus handles the logic for the /relay status command.
func HandleRelayStatus(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, options := subcommand(i.ApplicationCommandData().Options)
	key := strings.TrimSpace(optionString(options, "post"))
	feed := optionString(options, "feed")
	if feed == "" {
		feed = b.Runner.DefaultFeed()
	}

	rec, found, err := b.Runner.Status(b.Context(), feed, key)
	switch {
	case err != nil:
		utils.Error("handlers", "relay status", fmt.Sprintf("Error reading delivery state for %s: %v", key, err))
		respondEphemeral(s, i, fmt.Sprintf("❌ Could not read delivery state: %v", err))
	case !found:
		respondEphemeral(s, i, fmt.Sprintf("Post `%s` has not been delivered (%s).", key, models.StatusUnsent))
	default:
		respondEphemeral(s, i, formatRecord(rec))
	}
}

// formatRecord renders a delivery record for a status reply.
func formatRecord(rec models.DeliveryRecord) string {
	return fmt.Sprintf("Post `%s` (`%s`): **%s**, message `%s`, updated <t:%d:R> (%s)",
		rec.PostID, rec.BusinessID, rec.Status, rec.MessageRef,
		rec.UpdatedAt.Unix(), rec.UpdatedAt.Format(time.RFC3339))
}

// HandlePing handles the logic for the /ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}
