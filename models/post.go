package models

import "time"

// Post represents one crawled Weibo post as stored in the crawler database.
type Post struct {
	ID           string    `db:"id"`  // Unique
	BusinessID   string    `db:"bid"` // Unique, fallback match key
	CreatedAt    time.Time `db:"created_at"`
	Text         string    `db:"text"`
	SourceLabel  string    `db:"source"`
	AuthorID     string    `db:"user_id"`
	RepostCount  int       `db:"reposts_count"`
	CommentCount int       `db:"comments_count"`
	LikeCount    int       `db:"attitudes_count"`
	ImageRefs    []string  `db:"pics"`      // Comma separated in the database
	VideoRef     string    `db:"video_url"` // Empty when the post has no video
}

// Attachment is a local file backing one of a post's image or video references.
type Attachment struct {
	Ref       string `db:"url"`
	LocalPath string `db:"path"`
	Size      int64  // Derived from the file at resolution time
}

// Comment is a reply to a post.
type Comment struct {
	PostID     string `db:"weibo_id"`
	AuthorID   string `db:"user_id"`
	AuthorName string `db:"user_screen_name"`
	CreatedAt  string `db:"created_at"`
	Text       string `db:"text"`
}
