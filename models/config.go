package models

import "time"

// Config is the full relay configuration assembled from config.yaml,
// config/feeds.json and the environment.
type Config struct {
	Relay    RelayConfig           `json:"relay" mapstructure:"relay"`
	State    StateConfig           `json:"state" mapstructure:"state"`
	Feeds    map[string]FeedConfig `json:"feeds" mapstructure:"feeds"` // key is the feed selector
	S3       S3Config              `json:"s3" mapstructure:"s3"`
	Media    MediaConfig           `json:"media" mapstructure:"media"`
	Bot      BotConfig             `json:"bot" mapstructure:"bot"`
	Commands CommandsConfig        `json:"commands" mapstructure:"commands"`
	Log      LogConfig             `json:"log" mapstructure:"log"`
}

// RelayConfig controls the delivery run.
type RelayConfig struct {
	Feed          string        `json:"feed" mapstructure:"feed"`
	WebhookURL    string        `json:"webhook_url" mapstructure:"webhook_url"`
	Pacer         string        `json:"pacer" mapstructure:"pacer"` // fixed or rate
	Pace          time.Duration `json:"pace" mapstructure:"pace"`
	ResendEnabled bool          `json:"resend_enabled" mapstructure:"resend_enabled"`
	StopOnError   bool          `json:"stop_on_error" mapstructure:"stop_on_error"`
	Schedule      string        `json:"schedule" mapstructure:"schedule"` // cron spec, empty runs once
	RunAtStartup  bool          `json:"run_at_startup" mapstructure:"run_at_startup"`
}

// StateConfig selects the Sent-State Store backing.
type StateConfig struct {
	Driver string `json:"driver" mapstructure:"driver"` // json or sqlite
}

// FeedConfig describes one crawled account and where its delivery state lives.
type FeedConfig struct {
	Name        string `json:"name" mapstructure:"name"`
	Database    string `json:"database" mapstructure:"database"`     // crawler SQLite database
	StateFile   string `json:"state_file" mapstructure:"state_file"` // sent.json or a SQLite file
	OwnerUserID string `json:"owner_user_id" mapstructure:"owner_user_id"`
}

// S3Config holds the blob storage settings used for oversized attachments.
type S3Config struct {
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Prefix    string `json:"prefix" mapstructure:"prefix"`
	Region    string `json:"region" mapstructure:"region"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
}

// MediaConfig configures optional media tooling.
type MediaConfig struct {
	FFProbePath string `json:"ffprobe_path" mapstructure:"ffprobe_path"`
}

// BotConfig configures the optional control bot and admin log channel.
type BotConfig struct {
	Token           string `json:"token" mapstructure:"token"`
	AdminWebhookURL string `json:"admin_webhook_url" mapstructure:"admin_webhook_url"`
}

// CommandsConfig holds slash command permissions.
type CommandsConfig struct {
	Auth AuthConfig `json:"auth" mapstructure:"auth"`
}

// AuthConfig lists who may run privileged commands.
type AuthConfig struct {
	Developers  []string `json:"developers" mapstructure:"developers"`
	AdminsRoles []string `json:"admins_roles" mapstructure:"admins_roles"`
	Guest       []string `json:"guest" mapstructure:"guest"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // text or json
}
