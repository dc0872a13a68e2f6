package media

import (
	"errors"
	"fmt"

	"weibo-relay/models"
)

const (
	// MaxBatchItems is the most files Discord accepts in one message.
	MaxBatchItems = 9
	// MaxBatchBytes caps the combined size of one message's files (25 MiB).
	MaxBatchBytes int64 = 25 * 1024 * 1024
)

// ErrOversizedItem is returned when a single attachment cannot fit any batch.
var ErrOversizedItem = errors.New("attachment exceeds the per-batch size limit")

// Oversized reports whether a cannot be delivered inline and must be offloaded.
func Oversized(a models.Attachment) bool {
	return a.Size >= MaxBatchBytes
}

// SplitOversized separates attachments that fit a batch from those that do not,
// keeping the relative order of each group.
func SplitOversized(attachments []models.Attachment) (inline, oversized []models.Attachment) {
	for _, a := range attachments {
		if Oversized(a) {
			oversized = append(oversized, a)
		} else {
			inline = append(inline, a)
		}
	}
	return inline, oversized
}

// Pack splits attachments into ordered batches that each hold at most
// MaxBatchItems files totalling less than MaxBatchBytes. It fills each batch
// greedily in input order.
func Pack(attachments []models.Attachment) ([][]models.Attachment, error) {
	var (
		batches [][]models.Attachment
		start   int
		count   int
		total   int64
	)

	for i, a := range attachments {
		if Oversized(a) {
			return nil, fmt.Errorf("%s (%d bytes): %w", a.Ref, a.Size, ErrOversizedItem)
		}

		if total+a.Size < MaxBatchBytes && count+1 <= MaxBatchItems {
			count++
			total += a.Size
			continue
		}

		batches = append(batches, attachments[start:i:i])
		start, count, total = i, 1, a.Size
	}

	if count > 0 {
		batches = append(batches, attachments[start:len(attachments):len(attachments)])
	}
	return batches, nil
}
