package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"weibo-relay/models"
	"weibo-relay/utils"

	"github.com/bwmarrin/discordgo"
)

// Webhook posts into a forum channel through an incoming webhook.
type Webhook struct {
	session *discordgo.Session
	target  utils.WebhookTarget
}

// NewWebhook creates a webhook client from a webhook URL.
func NewWebhook(webhookURL string) (*Webhook, error) {
	target, err := utils.ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook endpoints authenticate with the token in the URL, so the
	// session itself carries none.
	dg, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return &Webhook{session: dg, target: target}, nil
}

// noMentions stops crawled text from pinging anyone.
func noMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{}
}

// CreateThread starts a forum thread and returns its starter message.
func (w *Webhook) CreateThread(ctx context.Context, name string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return w.session.WebhookExecute(w.target.ID, w.target.Token, true, &discordgo.WebhookParams{
		Embeds:          []*discordgo.MessageEmbed{embed},
		ThreadName:      name,
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
}

// SendEmbed replies in a thread with an embed.
func (w *Webhook) SendEmbed(ctx context.Context, threadID string, embed *discordgo.MessageEmbed) error {
	_, err := w.session.WebhookThreadExecute(w.target.ID, w.target.Token, true, threadID, &discordgo.WebhookParams{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
	return err
}

// SendText replies in a thread with plain content.
func (w *Webhook) SendText(ctx context.Context, threadID, content string) error {
	_, err := w.session.WebhookThreadExecute(w.target.ID, w.target.Token, true, threadID, &discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
	return err
}

// SendFiles replies in a thread with a batch of files and optional content.
func (w *Webhook) SendFiles(ctx context.Context, threadID string, attachments []models.Attachment, content string) error {
	files := make([]*discordgo.File, 0, len(attachments))
	defer func() {
		for _, f := range files {
			if c, ok := f.Reader.(*os.File); ok {
				c.Close()
			}
		}
	}()

	for _, a := range attachments {
		f, err := os.Open(a.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open attachment %s: %w", a.LocalPath, err)
		}
		name := filepath.Base(a.LocalPath)
		files = append(files, &discordgo.File{
			Name:        name,
			ContentType: mime.TypeByExtension(filepath.Ext(name)),
			Reader:      f,
		})
	}

	_, err := w.session.WebhookThreadExecute(w.target.ID, w.target.Token, true, threadID, &discordgo.WebhookParams{
		Content:         content,
		Files:           files,
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
	return err
}

// FetchMessage loads a thread starter message created by this webhook. The
// message lives inside the thread, whose id equals the message id.
func (w *Webhook) FetchMessage(ctx context.Context, ref string) (*discordgo.Message, error) {
	uri := discordgo.EndpointWebhookMessage(w.target.ID, w.target.Token, ref) + "?thread_id=" + url.QueryEscape(ref)

	body, err := w.session.RequestWithBucketID(http.MethodGet, uri, nil,
		discordgo.EndpointWebhookToken(w.target.ID, w.target.Token), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	var msg discordgo.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", ref, err)
	}
	return &msg, nil
}
