package handlers

import (
	"fmt"
	"strings"

	"weibo-relay/bot"
	"weibo-relay/utils"

	"github.com/bwmarrin/discordgo"
)

// maxChoices is Discord's autocomplete choice limit.
const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func HandleAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "relay" {
		return
	}
	_, options := subcommand(data.Options)
	for _, opt := range options {
		if opt.Name == "feed" && opt.Focused {
			handleFeedAutocomplete(b, s, i, opt.StringValue())
		}
	}
}

func handleFeedAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, typed string) {
	choices := feedChoices(b.Runner.Feeds(), typed)

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		utils.Warn("handlers", "autocomplete", fmt.Sprintf("Error responding to autocomplete interaction: %v", err))
	}
}

// feedChoices lists the feeds whose selector contains typed.
func feedChoices(feeds []string, typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimSpace(typed))
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(feeds))
	for _, feed := range feeds {
		if typed != "" && !strings.Contains(strings.ToLower(feed), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: feed, Value: feed})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}
