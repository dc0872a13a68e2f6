package command

import "github.com/bwmarrin/discordgo"

// RelayCommand defines the structure for the /relay command.
type RelayCommand struct{}

// Definition returns the application command definition.
func (c *RelayCommand) Definition() *discordgo.ApplicationCommand {
	feedOption := &discordgo.ApplicationCommandOption{
		Name:         "feed",
		Description:  "The feed to use (defaults to the configured feed)",
		Type:         discordgo.ApplicationCommandOptionString,
		Required:     false,
		Autocomplete: true,
	}

	return &discordgo.ApplicationCommand{
		Name:        "relay",
		Description: "Control the Weibo relay",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "run",
				Description: "Deliver pending posts now",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options:     []*discordgo.ApplicationCommandOption{feedOption},
			},
			{
				Name:        "status",
				Description: "Show the delivery record of a post",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "post",
						Description: "Post id or business id",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
					},
					feedOption,
				},
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
