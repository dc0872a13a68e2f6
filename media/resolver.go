package media

import (
	"context"
	"fmt"
	"os"

	"weibo-relay/models"
)

// AttachmentSource lists the downloaded files recorded for a post.
type AttachmentSource interface {
	ListAttachments(ctx context.Context, postID string) ([]models.Attachment, error)
}

// Resolver maps a post's attachment references to files on disk.
type Resolver struct {
	source AttachmentSource
}

// NewResolver creates a resolver reading candidates from source.
func NewResolver(source AttachmentSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the attachments backing refs, in the order of refs.
// References without an existing file are left out.
func (r *Resolver) Resolve(ctx context.Context, postID string, refs []string) ([]models.Attachment, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	candidates, err := r.source.ListAttachments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments for post %s: %w", postID, err)
	}

	var resolved []models.Attachment
	for _, ref := range refs {
		for _, candidate := range candidates {
			if candidate.Ref != ref {
				continue
			}
			info, err := os.Stat(candidate.LocalPath)
			if err != nil || info.IsDir() {
				continue
			}
			candidate.Size = info.Size()
			resolved = append(resolved, candidate)
			break
		}
	}
	return resolved, nil
}

// ResolveOne resolves a single reference such as a post's video.
func (r *Resolver) ResolveOne(ctx context.Context, postID, ref string) (models.Attachment, bool, error) {
	if ref == "" {
		return models.Attachment{}, false, nil
	}
	resolved, err := r.Resolve(ctx, postID, []string{ref})
	if err != nil || len(resolved) == 0 {
		return models.Attachment{}, false, err
	}
	return resolved[0], true, nil
}
