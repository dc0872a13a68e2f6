package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"weibo-relay/config"
	"weibo-relay/database"
	"weibo-relay/media"
	"weibo-relay/models"
	"weibo-relay/relay"
	"weibo-relay/storage"
)

// errOffloadDisabled is returned when an attachment needs offloading but no
// bucket is configured.
var errOffloadDisabled = errors.New("s3.bucket is not configured; cannot offload oversized attachment")

type disabledOffloader struct{}

func (disabledOffloader) Offload(ctx context.Context, a models.Attachment) (string, error) {
	return "", fmt.Errorf("%s: %w", a.LocalPath, errOffloadDisabled)
}

// FeedRunner runs the relay for a configured feed. Only one run happens at a
// time, whichever feed it is for, because every feed shares one webhook.
type FeedRunner struct {
	cfg       *models.Config
	messenger relay.Messenger
	offloader relay.Offloader
	inspector media.Inspector

	mu sync.Mutex
}

// NewFeedRunner connects the shared collaborators described by cfg.
func NewFeedRunner(ctx context.Context, cfg *models.Config) (*FeedRunner, error) {
	webhook, err := NewWebhook(cfg.Relay.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay.webhook_url: %w", err)
	}

	var offloader relay.Offloader = disabledOffloader{}
	if cfg.S3.Bucket != "" {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		offloader = storage.NewOffloader(client)
	}

	var inspector media.Inspector
	if cfg.Media.FFProbePath != "" {
		inspector = media.NewFFmpegInspector(cfg.Media.FFProbePath)
	}

	return &FeedRunner{
		cfg:       cfg,
		messenger: webhook,
		offloader: offloader,
		inspector: inspector,
	}, nil
}

// Feeds lists the configured feed selectors.
func (f *FeedRunner) Feeds() []string {
	return config.FeedNames(f.cfg)
}

// DefaultFeed is the feed selected by relay.feed.
func (f *FeedRunner) DefaultFeed() string {
	return f.cfg.Relay.Feed
}

// RunFeed delivers every pending post of the named feed.
func (f *FeedRunner) RunFeed(ctx context.Context, name string) (*relay.RunReport, error) {
	if !f.mu.TryLock() {
		return nil, relay.ErrRunInProgress
	}
	defer f.mu.Unlock()

	feed, err := config.Feed(f.cfg, name)
	if err != nil {
		return nil, err
	}

	source, err := database.InitDB(feed.Database)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	store, err := database.OpenSentStore(f.cfg.State.Driver, feed.StateFile)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	r, err := relay.New(relay.Dependencies{
		Source:    source,
		Store:     store,
		Messenger: f.messenger,
		Offloader: f.offloader,
		Inspector: f.inspector,
		Pacer:     relay.NewPacer(f.cfg.Relay.Pacer, f.cfg.Relay.Pace),
	}, relay.Options{
		OwnerID:       feed.OwnerUserID,
		ResendEnabled: f.cfg.Relay.ResendEnabled,
		StopOnError:   f.cfg.Relay.StopOnError,
	})
	if err != nil {
		return nil, err
	}

	return r.Run(ctx)
}

// Status returns the delivery record of a post, looked up by post id or business id.
func (f *FeedRunner) Status(ctx context.Context, name, key string) (models.DeliveryRecord, bool, error) {
	feed, err := config.Feed(f.cfg, name)
	if err != nil {
		return models.DeliveryRecord{}, false, err
	}

	store, err := database.OpenSentStore(f.cfg.State.Driver, feed.StateFile)
	if err != nil {
		return models.DeliveryRecord{}, false, err
	}
	defer store.Close()

	return store.Get(ctx, models.Post{ID: key, BusinessID: key})
}
