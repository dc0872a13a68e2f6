package media

import (
	"fmt"
	"testing"

	"weibo-relay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func attachments(sizes ...int64) []models.Attachment {
	out := make([]models.Attachment, len(sizes))
	for i, size := range sizes {
		out[i] = models.Attachment{Ref: fmt.Sprintf("img-%d", i), LocalPath: fmt.Sprintf("/tmp/img-%d.jpg", i), Size: size}
	}
	return out
}

func batchSizes(batches [][]models.Attachment) []int {
	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = len(b)
	}
	return sizes
}

func TestPack_Empty(t *testing.T) {
	batches, err := Pack(nil)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestPack_SingleBatch(t *testing.T) {
	batches, err := Pack(attachments(mib, 2*mib, 3*mib))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, batchSizes(batches))
}

func TestPack_SizeLimitSplits(t *testing.T) {
	sizes := make([]int64, 10)
	for i := range sizes {
		sizes[i] = 3 * mib
	}
	batches, err := Pack(attachments(sizes...))
	require.NoError(t, err)
	assert.Equal(t, []int{8, 2}, batchSizes(batches))
}

func TestPack_ItemLimitSplits(t *testing.T) {
	sizes := make([]int64, 20)
	for i := range sizes {
		sizes[i] = 1024
	}
	batches, err := Pack(attachments(sizes...))
	require.NoError(t, err)
	assert.Equal(t, []int{9, 9, 2}, batchSizes(batches))
}

func TestPack_StrictlyUnderLimit(t *testing.T) {
	// Two halves of the limit sum to exactly the limit, which is not allowed.
	half := MaxBatchBytes / 2
	batches, err := Pack(attachments(half, half))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, batchSizes(batches))
}

func TestPack_Properties(t *testing.T) {
	input := attachments(24*mib, mib, 10*mib, 10*mib, 4*mib, 1, 1, 1, 1, 1, 1, 1, 1, 1, 20*mib, 6*mib)
	batches, err := Pack(input)
	require.NoError(t, err)

	var flat []models.Attachment
	for _, b := range batches {
		require.NotEmpty(t, b)
		assert.LessOrEqual(t, len(b), MaxBatchItems)
		var total int64
		for _, a := range b {
			total += a.Size
		}
		assert.Less(t, total, MaxBatchBytes)
		flat = append(flat, b...)
	}
	assert.Equal(t, input, flat)
}

func TestPack_OversizedItem(t *testing.T) {
	_, err := Pack(attachments(mib, MaxBatchBytes))
	require.ErrorIs(t, err, ErrOversizedItem)
}

func TestSplitOversized(t *testing.T) {
	input := attachments(mib, 30*mib, 2*mib, MaxBatchBytes)
	inline, oversized := SplitOversized(input)
	assert.Equal(t, []models.Attachment{input[0], input[2]}, inline)
	assert.Equal(t, []models.Attachment{input[1], input[3]}, oversized)
}
