package render

import (
	"strings"
	"testing"

	"weibo-relay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentBlock(t *testing.T) {
	c := models.Comment{AuthorID: "42", AuthorName: "alice", CreatedAt: "2024-05-01 10:00", Text: "hello"}

	assert.Equal(t, "> `💬 alice 📅(2024-05-01 10:00)`:\n```\nhello\n```\n", CommentBlock(c, "7"))
	assert.Equal(t, "> `🦝 alice 📅(2024-05-01 10:00)`:\n```\nhello\n```\n", CommentBlock(c, "42"))
}

func TestCommentDigests_Empty(t *testing.T) {
	assert.Empty(t, CommentDigests(nil, "", DigestLimit))
}

func TestCommentDigests_GroupsInOrderWithinCap(t *testing.T) {
	var comments []models.Comment
	for i := 0; i < 40; i++ {
		comments = append(comments, models.Comment{
			AuthorID:   "u",
			AuthorName: "user",
			CreatedAt:  "2024-01-01",
			Text:       strings.Repeat(string(rune('a'+i%26)), 150),
		})
	}

	digests := CommentDigests(comments, "", DigestLimit)
	require.Greater(t, len(digests), 1)

	var joined strings.Builder
	for _, d := range digests {
		assert.LessOrEqual(t, runeLen(d), DigestLimit-10)
		joined.WriteString(d)
	}

	var want strings.Builder
	for _, c := range comments {
		want.WriteString(CommentBlock(c, ""))
	}
	assert.Equal(t, want.String(), joined.String())
}

func TestCommentDigests_TruncatesOversizedComment(t *testing.T) {
	long := models.Comment{AuthorName: "bob", CreatedAt: "2024-01-01", Text: strings.Repeat("长", 3000)}
	short := models.Comment{AuthorName: "eve", CreatedAt: "2024-01-02", Text: "ok"}

	digests := CommentDigests([]models.Comment{long, short}, "", DigestLimit)
	require.Len(t, digests, 2)
	assert.LessOrEqual(t, runeLen(digests[0]), DigestLimit-10)
	assert.Contains(t, digests[0], "…\n```\n")
	assert.Equal(t, CommentBlock(short, ""), digests[1])
}

func TestCommentDigests_KeepsFenceWhenHeaderIsHuge(t *testing.T) {
	c := models.Comment{AuthorName: strings.Repeat("名", 3000), CreatedAt: "2024-01-01", Text: "hi"}

	digests := CommentDigests([]models.Comment{c}, "", DigestLimit)
	require.Len(t, digests, 1)
	d := digests[0]
	assert.LessOrEqual(t, runeLen(d), DigestLimit-10)
	assert.True(t, strings.HasSuffix(d, "\n```\n"))
	assert.Equal(t, 2, strings.Count(d, "```\n"))
	assert.Contains(t, d, "📅(2024-01-01)")
	assert.Contains(t, d, "名…")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 3))
	assert.Equal(t, "a…", shorten("abc", 2))
	assert.Equal(t, "", shorten("abc", 1))
}
