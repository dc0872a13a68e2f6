package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"weibo-relay/models"
	"weibo-relay/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults applied before any file or environment value.
var defaults = map[string]any{
	"relay.feed":            "main",
	"relay.webhook_url":     "",
	"relay.pacer":           "fixed",
	"relay.pace":            2 * time.Second,
	"relay.resend_enabled":  true,
	"relay.stop_on_error":   false,
	"relay.schedule":        "",
	"relay.run_at_startup":  true,
	"state.driver":          "json",
	"s3.bucket":             "",
	"s3.prefix":             "",
	"s3.region":             "us-east-1",
	"s3.endpoint":           "",
	"s3.access_key":         "",
	"s3.secret_key":         "",
	"media.ffprobe_path":    "",
	"bot.admin_webhook_url": "",
	"log.level":             "info",
	"log.format":            "text",
}

// LoadConfig 从多个源加载配置：.env 文件、config.yaml、以及 ./config/feeds.json。
// 配置加载顺序:
// 1. .env 文件 (用于环境变量)
// 2. config.yaml (基础配置)
// 3. config/feeds.json (合并到主配置)
// 环境变量会覆盖配置文件中的同名设置，例如 RELAY_WEBHOOK_URL 覆盖 relay.webhook_url。
func LoadConfig() {
	log := utils.Logger()

	// 1. 从 .env 文件加载环境变量，如果文件不存在则忽略。
	if err := godotenv.Load(); err != nil {
		log.Debug("未找到 .env 文件，将跳过加载。")
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	// 2. 设置并读取基础配置文件 (config.yaml)。
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = viper.BindEnv("bot.token", "BOT_TOKEN")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info("未找到基础配置文件 (config.yaml)，将仅使用环境变量和后续合并的配置。")
		} else {
			panic(fmt.Errorf("解析基础配置文件时发生致命错误: %w", err))
		}
	}

	// 3. 合并订阅源配置文件 (config/feeds.json)。
	viper.SetConfigName("feeds")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info("未找到订阅源配置文件 (config/feeds.json)，将跳过合并。")
		} else {
			panic(fmt.Errorf("合并订阅源配置文件时发生致命错误: %w", err))
		}
	}
}

// Load reads the configuration sources and returns the validated config.
func Load() (*models.Config, error) {
	LoadConfig()
	return Decode(viper.GetViper())
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*models.Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything that must be present before a run starts.
func Validate(cfg *models.Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Relay.WebhookURL) == "" {
		errs = append(errs, errors.New("relay.webhook_url is required"))
	}
	if _, err := SelectedFeed(cfg); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Relay.Pacer {
	case "", "fixed", "rate":
	default:
		errs = append(errs, fmt.Errorf("unknown relay.pacer %q", cfg.Relay.Pacer))
	}
	if cfg.Relay.Pace < 0 {
		errs = append(errs, errors.New("relay.pace must not be negative"))
	}
	switch cfg.State.Driver {
	case "", "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown state.driver %q", cfg.State.Driver))
	}

	return errors.Join(errs...)
}

// SelectedFeed returns the feed named by relay.feed.
func SelectedFeed(cfg *models.Config) (models.FeedConfig, error) {
	return Feed(cfg, cfg.Relay.Feed)
}

// Feed returns the named feed, checking that it is usable.
func Feed(cfg *models.Config, name string) (models.FeedConfig, error) {
	feed, ok := cfg.Feeds[name]
	if !ok {
		return models.FeedConfig{}, fmt.Errorf("unknown feed %q (known: %s)", name, strings.Join(FeedNames(cfg), ", "))
	}
	if feed.Database == "" {
		return models.FeedConfig{}, fmt.Errorf("feed %q has no database", name)
	}
	if feed.StateFile == "" {
		return models.FeedConfig{}, fmt.Errorf("feed %q has no state_file", name)
	}
	if feed.Name == "" {
		feed.Name = name
	}
	return feed, nil
}

// FeedNames returns the configured feed selectors in sorted order.
func FeedNames(cfg *models.Config) []string {
	names := make([]string, 0, len(cfg.Feeds))
	for name := range cfg.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
