package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"weibo-relay/models"
)

// Uploader stores a local file in blob storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
	ObjectSize(ctx context.Context, key string) (int64, bool, error)
	BuildS3URL(key string) string
}

// Offloader moves attachments that are too large for Discord to blob storage.
type Offloader struct {
	uploader Uploader
}

// NewOffloader creates an Offloader using uploader.
func NewOffloader(uploader Uploader) *Offloader {
	return &Offloader{uploader: uploader}
}

// Offload uploads the attachment under its original filename and returns the
// notice posted in its place. An object already stored under that name is
// reused only when its size matches; otherwise it is overwritten.
func (o *Offloader) Offload(ctx context.Context, a models.Attachment) (string, error) {
	key := filepath.Base(a.LocalPath)
	size, exists, err := o.uploader.ObjectSize(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to offload %s: %w", key, err)
	}
	if !exists || size != a.Size {
		if err := o.uploader.Upload(ctx, a.LocalPath, key); err != nil {
			return "", fmt.Errorf("failed to offload %s: %w", key, err)
		}
	}
	return Notice(key, a.Size, o.uploader.BuildS3URL(key)), nil
}

// Notice describes an offloaded file.
func Notice(filename string, size int64, location string) string {
	return fmt.Sprintf("📦 %s (%.2f MiB) 超出附件上限，已上传至 %s", filename, float64(size)/(1024*1024), location)
}
