package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// WebhookTarget is the id and token pair taken from a webhook URL.
type WebhookTarget struct {
	ID    string
	Token string
}

// ParseWebhookURL extracts the id and token from
// https://discord.com/api/webhooks/{id}/{token}.
func ParseWebhookURL(raw string) (WebhookTarget, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return WebhookTarget{}, fmt.Errorf("failed to parse webhook url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return WebhookTarget{}, fmt.Errorf("unsupported webhook url scheme %q", u.Scheme)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return WebhookTarget{ID: parts[i+1], Token: parts[i+2]}, nil
		}
	}
	return WebhookTarget{}, errors.New("webhook url must look like /api/webhooks/{id}/{token}")
}
