package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"weibo-relay/database"
	"weibo-relay/media"
	"weibo-relay/models"
	"weibo-relay/render"
	"weibo-relay/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// diagnosticLimit keeps an offload notice and its diagnostics inside one message.
const diagnosticLimit = 1500

// PostSource is the read-only view of the crawler database.
type PostSource interface {
	media.AttachmentSource
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// Messenger posts to the Discord forum channel.
type Messenger interface {
	// CreateThread starts a forum thread whose first message is embed.
	CreateThread(ctx context.Context, name string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	SendEmbed(ctx context.Context, threadID string, embed *discordgo.MessageEmbed) error
	SendText(ctx context.Context, threadID, content string) error
	SendFiles(ctx context.Context, threadID string, files []models.Attachment, content string) error
	// FetchMessage loads a previously created thread starter message.
	FetchMessage(ctx context.Context, ref string) (*discordgo.Message, error)
}

// Offloader moves an oversized attachment to blob storage and returns the
// notice to post in its place.
type Offloader interface {
	Offload(ctx context.Context, a models.Attachment) (string, error)
}

// Dependencies are the collaborators a Relay talks to. Inspector is optional.
type Dependencies struct {
	Source    PostSource
	Store     database.SentStore
	Messenger Messenger
	Offloader Offloader
	Inspector media.Inspector
	Pacer     Pacer
}

// Options tune the delivery policy.
type Options struct {
	// OwnerID marks comments written by the feed owner.
	OwnerID string
	// ResendEnabled records first deliveries as SENT so they are amended a
	// day later. When false they are recorded as RESENT and never revisited.
	ResendEnabled bool
	// StopOnError aborts the run at the first failing post.
	StopOnError bool
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Outcome is what happened to one post during a run.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeResent
)

// RunReport summarises a run.
type RunReport struct {
	Total   int
	Created int
	Resent  int
	Skipped int
	Failed  []*PostError
}

// Err joins the errors of every failed post.
func (r *RunReport) Err() error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Relay delivers posts to Discord and keeps the sent-state store current.
type Relay struct {
	source    PostSource
	store     database.SentStore
	messenger Messenger
	resolver  *media.Resolver
	offloader Offloader
	inspector media.Inspector
	pacer     Pacer
	opts      Options
}

// New creates a Relay.
func New(deps Dependencies, opts Options) (*Relay, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("relay: post source is required")
	case deps.Store == nil:
		return nil, errors.New("relay: sent-state store is required")
	case deps.Messenger == nil:
		return nil, errors.New("relay: messenger is required")
	case deps.Offloader == nil:
		return nil, errors.New("relay: offloader is required")
	}
	if deps.Pacer == nil {
		deps.Pacer = NoPacer{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Relay{
		source:    deps.Source,
		store:     deps.Store,
		messenger: deps.Messenger,
		resolver:  media.NewResolver(deps.Source),
		offloader: deps.Offloader,
		inspector: deps.Inspector,
		pacer:     deps.Pacer,
		opts:      opts,
	}, nil
}

// Run processes every post in creation order. Failed posts are collected in
// the report; the returned error joins them. Runs sharing a store or a
// webhook must not overlap; bot.FeedRunner serialises them.
func (r *Relay) Run(ctx context.Context) (*RunReport, error) {
	posts, err := r.source.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	log := utils.Logger()
	report := &RunReport{Total: len(posts)}
	for idx, post := range posts {
		if err := ctx.Err(); err != nil {
			return report, errors.Join(report.Err(), err)
		}

		log.WithFields(logrus.Fields{"post_id": post.ID}).
			Infof("%d/%d/%s", idx+1, len(posts), post.BusinessID)

		outcome, err := r.ProcessPost(ctx, post)
		if err != nil {
			var postErr *PostError
			if !errors.As(err, &postErr) {
				postErr = &PostError{PostID: post.ID, BusinessID: post.BusinessID, Step: "process", Err: err}
			}
			report.Failed = append(report.Failed, postErr)
			utils.Error("relay", "ProcessPost", postErr.Error())
			if r.opts.StopOnError {
				break
			}
			continue
		}

		switch outcome {
		case OutcomeCreated:
			report.Created++
		case OutcomeResent:
			report.Resent++
		default:
			report.Skipped++
		}
	}

	log.WithFields(logrus.Fields{
		"total":   report.Total,
		"created": report.Created,
		"resent":  report.Resent,
		"skipped": report.Skipped,
		"failed":  len(report.Failed),
	}).Info("Relay run finished")

	return report, report.Err()
}

// ProcessPost delivers, amends or skips a single post according to its
// delivery record.
func (r *Relay) ProcessPost(ctx context.Context, post models.Post) (Outcome, error) {
	rec, found, err := r.store.Get(ctx, post)
	if err != nil {
		return OutcomeSkipped, r.fail(post, "check sent state", err)
	}

	status := models.StatusUnsent
	if found {
		status = rec.Status
	}

	switch status {
	case models.StatusUnsent:
		return OutcomeCreated, r.deliver(ctx, post)
	case models.StatusSent:
		due, err := r.store.IsDueForResend(ctx, post)
		if err != nil {
			return OutcomeSkipped, r.fail(post, "check resend", err)
		}
		if !due {
			return OutcomeSkipped, nil
		}
		return OutcomeResent, r.resend(ctx, post)
	default:
		return OutcomeSkipped, nil
	}
}

func (r *Relay) fail(post models.Post, step string, err error) error {
	if err == nil {
		return nil
	}
	return &PostError{PostID: post.ID, BusinessID: post.BusinessID, Step: step, Err: err}
}

// deliver creates the thread for an unsent post and replies with its media
// and comments.
func (r *Relay) deliver(ctx context.Context, post models.Post) error {
	chunks := render.BodyChunks(post.Text)

	msg, err := r.messenger.CreateThread(ctx, render.ThreadName(post), render.PostEmbed(post, chunks[0], true))
	if err != nil {
		return r.fail(post, "create thread", transport("create thread", err))
	}
	thread := threadOf(msg)
	for _, chunk := range chunks[1:] {
		if err := r.messenger.SendEmbed(ctx, thread, render.PostEmbed(post, chunk, false)); err != nil {
			return r.fail(post, "send body", transport("send body chunk", err))
		}
	}

	steps := []struct {
		name string
		fn   func(context.Context, models.Post, string) error
	}{
		{"send images", r.sendImages},
		{"send video", r.sendVideo},
		{"send comments", r.sendComments},
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return r.fail(post, "pace", err)
	}
	for _, step := range steps {
		if err := step.fn(ctx, post, thread); err != nil {
			return r.fail(post, step.name, err)
		}
		if err := r.pacer.Wait(ctx); err != nil {
			return r.fail(post, "pace", err)
		}
	}

	status := models.StatusResent
	if r.opts.ResendEnabled {
		status = models.StatusSent
	}
	if err := r.store.Put(ctx, post, msg.ID, status); err != nil {
		return r.fail(post, "save sent state", err)
	}
	return nil
}

// resend amends a delivered post: a divider, corrected body chunks and the
// current comments.
func (r *Relay) resend(ctx context.Context, post models.Post) error {
	ref, err := r.store.MessageRef(ctx, post)
	if err != nil {
		return r.fail(post, "look up message", err)
	}

	msg, err := r.messenger.FetchMessage(ctx, ref)
	if err != nil {
		return r.fail(post, "fetch message", transport("fetch message "+ref, err))
	}
	thread := threadOf(msg)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"send divider", func() error {
			return transport("send divider", r.messenger.SendText(ctx, thread, render.Divider(r.opts.Now())))
		}},
		{"send corrections", func() error {
			return r.sendCorrections(ctx, post, msg, thread)
		}},
		{"send comments", func() error {
			return r.sendComments(ctx, post, thread)
		}},
	}
	for _, step := range steps {
		if err := r.pacer.Wait(ctx); err != nil {
			return r.fail(post, "pace", err)
		}
		if err := step.fn(); err != nil {
			return r.fail(post, step.name, err)
		}
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return r.fail(post, "pace", err)
	}

	if err := r.store.Put(ctx, post, ref, models.StatusResent); err != nil {
		return r.fail(post, "save sent state", err)
	}
	return nil
}

// sendCorrections compares each embed of the delivered message with the
// current body chunk at the same index and posts the ones that changed.
func (r *Relay) sendCorrections(ctx context.Context, post models.Post, msg *discordgo.Message, thread string) error {
	for idx, embed := range msg.Embeds {
		chunk := render.ChunkAt(post.Text, render.BodyLimit, idx)
		if strings.TrimSpace(embed.Description) == strings.TrimSpace(chunk) {
			continue
		}
		if err := r.messenger.SendEmbed(ctx, thread, render.PostEmbed(post, chunk, idx == 0)); err != nil {
			return transport("send corrected body chunk", err)
		}
	}
	return nil
}

func (r *Relay) sendImages(ctx context.Context, post models.Post, thread string) error {
	images, err := r.resolver.Resolve(ctx, post.ID, post.ImageRefs)
	if err != nil {
		return err
	}

	inline, oversized := media.SplitOversized(images)
	batches, err := media.Pack(inline)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		if err := r.messenger.SendFiles(ctx, thread, batch, ""); err != nil {
			return transport("send image batch", err)
		}
	}
	for _, a := range oversized {
		if err := r.offload(ctx, thread, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) sendVideo(ctx context.Context, post models.Post, thread string) error {
	video, ok, err := r.resolver.ResolveOne(ctx, post.ID, post.VideoRef)
	if err != nil || !ok {
		return err
	}
	if media.Oversized(video) {
		return r.offload(ctx, thread, video)
	}
	return transport("send video", r.messenger.SendFiles(ctx, thread, []models.Attachment{video}, ""))
}

// offload uploads an oversized attachment and posts the notice, with the
// inspector's diagnostics when it reports any.
func (r *Relay) offload(ctx context.Context, thread string, a models.Attachment) error {
	notice, err := r.offloader.Offload(ctx, a)
	if err != nil {
		return transport("offload "+a.Ref, err)
	}

	if r.inspector != nil {
		diagnostic, err := r.inspector.Inspect(ctx, a.LocalPath)
		if err != nil {
			utils.Warn("relay", "inspect", fmt.Sprintf("failed to inspect %s: %v", a.LocalPath, err))
		} else if diagnostic = strings.TrimSpace(diagnostic); diagnostic != "" {
			if runes := []rune(diagnostic); len(runes) > diagnosticLimit {
				diagnostic = string(runes[:diagnosticLimit]) + "…"
			}
			notice += "\n```\n" + diagnostic + "\n```"
		}
	}

	return transport("send offload notice", r.messenger.SendText(ctx, thread, notice))
}

func (r *Relay) sendComments(ctx context.Context, post models.Post, thread string) error {
	comments, err := r.source.ListComments(ctx, post.ID)
	if err != nil {
		return err
	}
	for _, digest := range render.CommentDigests(comments, r.opts.OwnerID, render.DigestLimit) {
		if err := r.messenger.SendText(ctx, thread, digest); err != nil {
			return transport("send comments", err)
		}
	}
	return nil
}

// threadOf returns the thread a starter message lives in. Forum threads share
// their id with the starter message.
func threadOf(msg *discordgo.Message) string {
	if msg.ChannelID != "" {
		return msg.ChannelID
	}
	return msg.ID
}
