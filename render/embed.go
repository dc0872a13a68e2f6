package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"weibo-relay/models"

	"github.com/bwmarrin/discordgo"
)

const (
	// EmbedColor is the accent color of post embeds.
	EmbedColor = 4886754
	// threadNameLimit is Discord's maximum thread name length.
	threadNameLimit = 100
	dividerDashes   = 25
)

// PostURL links to the original post on weibo.com.
func PostURL(p models.Post) string {
	return fmt.Sprintf("https://weibo.com/%s/%s", p.AuthorID, p.BusinessID)
}

// PostEmbed renders one body chunk. withMeta adds the source footer and the
// engagement counters, which only the first chunk carries.
func PostEmbed(p models.Post, chunk string, withMeta bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       p.ID,
		Description: chunk,
		URL:         PostURL(p),
		Color:       EmbedColor,
	}
	if !p.CreatedAt.IsZero() {
		embed.Timestamp = p.CreatedAt.Format(time.RFC3339)
	}

	if withMeta {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: p.SourceLabel}
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "转发", Value: strconv.Itoa(p.RepostCount), Inline: true},
			{Name: "留言", Value: strconv.Itoa(p.CommentCount), Inline: true},
			{Name: "点赞", Value: strconv.Itoa(p.LikeCount), Inline: true},
		}
	}
	return embed
}

// ThreadName derives the forum thread title from the post text.
func ThreadName(p models.Post) string {
	trimmed := strings.TrimSpace(p.Text)
	switch {
	case runeLen(trimmed) >= threadNameLimit:
		return truncateRunes(trimmed, threadNameLimit-1) + ellipsis
	case trimmed != "":
		return trimmed
	default:
		return "微博@" + p.CreatedAt.Format("2006-01-02 15:04:05")
	}
}

// Divider marks the start of an update in a thread.
func Divider(now time.Time) string {
	dashes := strings.Repeat("-", dividerDashes)
	return "```\n" + dashes + now.Format(time.RFC3339) + dashes + "\n```"
}
