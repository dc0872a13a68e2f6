package render

import (
	"fmt"
	"strings"

	"weibo-relay/models"
)

const (
	ownerMarker   = "🦝 "
	commentMarker = "💬 "
	ellipsis      = "…"
)

// CommentBlock renders one comment as a quoted header and a code block.
func CommentBlock(c models.Comment, ownerID string) string {
	return commentHeader(c, ownerID) + "```\n" + c.Text + "\n```\n"
}

func commentHeader(c models.Comment, ownerID string) string {
	marker := commentMarker
	if ownerID != "" && c.AuthorID == ownerID {
		marker = ownerMarker
	}
	return fmt.Sprintf("> `%s%s 📅(%s)`:\n", marker, c.AuthorName, c.CreatedAt)
}

// CommentDigests groups rendered comments into messages of at most
// limit-10 runes. Comments keep their order and are never split; a comment
// too long for any digest has its text shortened so its block fits.
func CommentDigests(comments []models.Comment, ownerID string, limit int) []string {
	capacity := limit - digestMargin

	var (
		digests []string
		current strings.Builder
		size    int
	)
	for _, c := range comments {
		block := CommentBlock(c, ownerID)
		if runeLen(block) > capacity {
			block = fitBlock(c, ownerID, capacity)
		}
		n := runeLen(block)

		if size > 0 && size+n > capacity {
			digests = append(digests, current.String())
			current.Reset()
			size = 0
		}
		current.WriteString(block)
		size += n
	}
	if size > 0 {
		digests = append(digests, current.String())
	}

	out := digests[:0]
	for _, d := range digests {
		if strings.TrimSpace(d) != "" {
			out = append(out, d)
		}
	}
	return out
}

// fitBlock shortens a comment so its rendered block fits capacity. An
// oversized header gives up its author name, then its date; the text takes
// whatever room is left. The code fence always stays closed.
func fitBlock(c models.Comment, ownerID string, capacity int) string {
	reserve := runeLen("```\n\n```\n") + runeLen(ellipsis)

	if over := runeLen(commentHeader(c, ownerID)) + reserve - capacity; over > 0 {
		c.AuthorName = shorten(c.AuthorName, runeLen(c.AuthorName)-over)
	}
	if over := runeLen(commentHeader(c, ownerID)) + reserve - capacity; over > 0 {
		c.CreatedAt = shorten(c.CreatedAt, runeLen(c.CreatedAt)-over)
	}

	room := capacity - runeLen(commentHeader(c, ownerID)) - reserve
	c.Text = truncateRunes(c.Text, room) + ellipsis
	return CommentBlock(c, ownerID)
}

// shorten cuts s to at most max runes, marking the cut with an ellipsis.
func shorten(s string, max int) string {
	if runeLen(s) <= max {
		return s
	}
	if max <= runeLen(ellipsis) {
		return ""
	}
	return truncateRunes(s, max-runeLen(ellipsis)) + ellipsis
}
