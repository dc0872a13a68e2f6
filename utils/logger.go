package utils

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"weibo-relay/models"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

var (
	logger   = newDefaultLogger()
	loggerMu sync.Mutex
)

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	return logger
}

// InitLogger applies the log configuration and, when an admin webhook is
// configured, forwards warnings and errors to it as embeds.
func InitLogger(cfg models.LogConfig, adminWebhookURL string) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	l := newDefaultLogger()
	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		l.SetLevel(level)
	}
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	if adminWebhookURL != "" {
		hook, err := NewAdminHook(adminWebhookURL)
		if err != nil {
			return err
		}
		l.AddHook(hook)
	} else {
		l.Warn("bot.admin_webhook_url is not set. Logging to channel will be disabled.")
	}

	logger = l
	return nil
}

// AdminHook sends log entries to an admin channel through a webhook.
type AdminHook struct {
	session *discordgo.Session
	webhook WebhookTarget
}

// NewAdminHook creates a hook posting to the given webhook URL.
func NewAdminHook(webhookURL string) (*AdminHook, error) {
	target, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid admin webhook: %w", err)
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return &AdminHook{session: session, webhook: target}, nil
}

// Levels implements logrus.Hook.
func (h *AdminHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

// Fire implements logrus.Hook.
func (h *AdminHook) Fire(entry *logrus.Entry) error {
	_, err := h.session.WebhookExecute(h.webhook.ID, h.webhook.Token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{LogEmbed(entry)},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending log message to Discord: %v\n", err)
	}
	return nil
}

// LogEmbed renders a log entry the way the admin channel displays it.
func LogEmbed(entry *logrus.Entry) *discordgo.MessageEmbed {
	var color int
	switch entry.Level {
	case logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel:
		color = ColorInfo
	case logrus.WarnLevel:
		color = ColorWarn
	default:
		color = ColorError
	}

	module, _ := entry.Data["module"].(string)
	operation, _ := entry.Data["operation"].(string)

	fields := []*discordgo.MessageEmbedField{}
	if module != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "模块", Value: module, Inline: true})
	}
	if operation != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "操作", Value: operation, Inline: true})
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "附加信息", Value: truncate(entry.Message, 1024)})

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", strings.ToUpper(entry.Level.String())),
		Color:     color,
		Timestamp: entry.Time.Format(time.RFC3339),
		Fields:    fields,
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// Log writes a message tagged with the module and operation.
func Log(level logrus.Level, module, operation, details string) {
	Logger().WithFields(logrus.Fields{
		"module":    module,
		"operation": operation,
	}).Log(level, details)
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log(logrus.InfoLevel, module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log(logrus.WarnLevel, module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log(logrus.ErrorLevel, module, operation, details)
}
