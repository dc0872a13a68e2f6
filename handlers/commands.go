package handlers

import (
	"weibo-relay/bot"

	"github.com/bwmarrin/discordgo"
)

// commandPermissions maps "command" or "command subcommand" to the level it requires.
var commandPermissions = map[string]string{
	"relay run":    "admin",
	"relay status": "guest",
	"ping":         "guest",
}

// requiredLevel returns the permission level for an invocation. Unknown
// invocations need developer rights.
func requiredLevel(name, sub string) string {
	key := name
	if sub != "" {
		key += " " + sub
	}
	if level, ok := commandPermissions[key]; ok {
		return level
	}
	return "developer"
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	sub, _ := subcommand(data.Options)

	if !b.Auth.CheckPermission(i, requiredLevel(data.Name, sub)) {
		respondEphemeral(s, i, "🚫 你没有权限执行此命令")
		return
	}

	switch data.Name {
	case "relay":
		switch sub {
		case "run":
			HandleRelayRun(b, s, i)
		case "status":
			HandleRelayStatus(b, s, i)
		default:
			respondEphemeral(s, i, "🚫内部错误：Unknown subcommand.")
		}
	case "ping":
		HandlePing(s, i)
	default:
		respondEphemeral(s, i, "🚫内部错误：Unknown command.")
	}
}

// subcommand returns the invoked subcommand and its options.
func subcommand(options []*discordgo.ApplicationCommandInteractionDataOption) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Name, options[0].Options
	}
	return "", options
}

// optionString returns the string value of the named option, or "".
func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
