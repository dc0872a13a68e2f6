// Package render turns posts and comments into the text Discord displays.
// Every function here is pure.
package render

import (
	"strings"
	"unicode/utf8"
)

const (
	// BodyLimit is the embed description limit used for post bodies.
	BodyLimit = 4096
	// DigestLimit is the message content limit used for comment digests.
	DigestLimit = 2000
	// digestMargin is kept free at the end of every digest.
	digestMargin = 10
)

// ChunkText splits text into consecutive segments of at most limit runes.
// Empty text yields a single empty segment.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		panic("render: chunk limit must be positive")
	}
	if text == "" {
		return []string{""}
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/limit+1)
	for text != "" {
		end, n := 0, 0
		for end < len(text) && n < limit {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
			n++
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}

// ChunkAt returns segment i of ChunkText(text, limit), or "" past the end.
func ChunkAt(text string, limit, i int) string {
	chunks := ChunkText(text, limit)
	if i < 0 || i >= len(chunks) {
		return ""
	}
	return chunks[i]
}

// BodyChunks splits a post body for delivery. The first segment is always
// kept because it carries the post metadata; later blank segments are dropped.
func BodyChunks(text string) []string {
	chunks := ChunkText(text, BodyLimit)
	out := chunks[:1:1]
	for _, c := range chunks[1:] {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runeLen(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
