package bot

import (
	"context"
	"errors"
	"fmt"

	"weibo-relay/models"
	"weibo-relay/relay"
	"weibo-relay/utils"

	"github.com/robfig/cron/v3"
)

type scheduler struct {
	c *cron.Cron
}

// startScheduler starts the cron job that runs the selected feed, plus an
// initial run when configured.
func startScheduler(ctx context.Context, runner *FeedRunner, cfg models.RelayConfig) (*scheduler, error) {
	s := &scheduler{}
	feed := cfg.Feed

	if cfg.Schedule != "" {
		utils.Info("scheduler", "start", "Initializing scheduler...")
		s.c = cron.New()
		_, err := s.c.AddFunc(cfg.Schedule, func() {
			utils.Info("scheduler", "tick", "Running scheduled relay for feed "+feed)
			runAndReport(ctx, runner, feed)
		})
		if err != nil {
			return nil, fmt.Errorf("could not set up cron job %q: %w", cfg.Schedule, err)
		}
		s.c.Start()
		utils.Info("scheduler", "start", fmt.Sprintf("Cron job scheduled with %q.", cfg.Schedule))
	}

	// Perform an initial run on startup based on config.
	if cfg.RunAtStartup {
		go func() {
			utils.Info("scheduler", "start", "Performing initial relay run on startup...")
			runAndReport(ctx, runner, feed)
		}()
	} else {
		utils.Info("scheduler", "start", "Skipping initial relay run on startup as per configuration.")
	}

	return s, nil
}

// stop stops the cron jobs and waits for a running job to finish.
func (s *scheduler) stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
		utils.Info("scheduler", "stop", "Scheduler stopped.")
	}
}

func runAndReport(ctx context.Context, runner *FeedRunner, feed string) {
	report, err := runner.RunFeed(ctx, feed)
	switch {
	case errors.Is(err, relay.ErrRunInProgress):
		utils.Warn("scheduler", "run", "Previous relay run still in progress, skipping this trigger.")
	case report == nil && err != nil:
		utils.Error("scheduler", "run", fmt.Sprintf("Relay run for feed %s failed: %v", feed, err))
	case report != nil:
		utils.Info("scheduler", "run", summary(feed, report))
	}
}

func summary(feed string, report *relay.RunReport) string {
	return fmt.Sprintf("feed %s: %d posts, %d created, %d resent, %d skipped, %d failed",
		feed, report.Total, report.Created, report.Resent, report.Skipped, len(report.Failed))
}
