package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"weibo-relay/models"
	"weibo-relay/utils"

	"github.com/bwmarrin/discordgo"
)

// Bot is the optional control bot that exposes relay runs as slash commands.
type Bot struct {
	Session  *discordgo.Session
	Commands []*discordgo.ApplicationCommand
	Runner   *FeedRunner
	Auth     *utils.Auth

	ctx context.Context
}

// NewBot creates and initializes a new Bot instance. ctx bounds the work
// started by commands and is cancelled on shutdown.
func NewBot(ctx context.Context, token string, runner *FeedRunner, auth *utils.Auth) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{
		Session: dg,
		Runner:  runner,
		Auth:    auth,
		ctx:     ctx,
	}, nil
}

// Context returns the context commands should run under.
func (b *Bot) Context() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// RegisterCommands registers the provided command definitions.
func (b *Bot) RegisterCommands(commands []*discordgo.ApplicationCommand) {
	b.Commands = append(b.Commands, commands...)
}

// Start opens the bot's session and registers handlers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	err := b.Session.Open()
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands
	for _, cmd := range b.Commands {
		_, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", cmd)
		if err != nil {
			utils.Warn("bot", "Start", fmt.Sprintf("Cannot create '%v' command: %v", cmd.Name, err))
		}
	}

	utils.Info("bot", "Start", "Control bot is now running.")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	if b.Session != nil {
		b.Session.Close()
	}
	utils.Info("bot", "Stop", "Control bot stopped gracefully.")
}

// Run is the main entry point for the relay application. Without a schedule
// or a bot token it runs the selected feed once and returns. Otherwise it
// stays up until SIGINT or SIGTERM.
func Run(cfg *models.Config, registerHandlers func(*Bot), commands []*discordgo.ApplicationCommand) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	runner, err := NewFeedRunner(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Relay.Schedule == "" && cfg.Bot.Token == "" {
		report, err := runner.RunFeed(ctx, cfg.Relay.Feed)
		if report != nil {
			utils.Info("bot", "Run", summary(cfg.Relay.Feed, report))
		}
		return err
	}

	if cfg.Bot.Token != "" {
		b, err := NewBot(ctx, cfg.Bot.Token, runner, utils.NewAuth(cfg.Commands))
		if err != nil {
			return err
		}
		b.RegisterCommands(commands)
		if err := b.Start(registerHandlers); err != nil {
			return err
		}
		defer b.Stop()
	}

	sched, err := startScheduler(ctx, runner, cfg.Relay)
	if err != nil {
		return err
	}
	defer sched.stop()

	utils.Info("bot", "Run", "Relay is now running. Press CTRL-C to exit.")
	<-ctx.Done()
	return nil
}
