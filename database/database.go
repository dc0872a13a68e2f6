package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"weibo-relay/models"
	"weibo-relay/utils"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// createdAtLayouts are the timestamp formats the crawler has been seen to write.
var createdAtLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// RecordDB reads posts, attachments and comments from the crawler database.
// The relay never writes to it.
type RecordDB struct {
	db *sql.DB
}

// InitDB opens the crawler database read-only. It takes the database path as input.
func InitDB(dbPath string) (*RecordDB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("crawler database %s is not accessible: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	utils.Info("database", "InitDB", "Successfully connected to the crawler database at "+dbPath)
	return &RecordDB{db: db}, nil
}

// Close closes the database connection.
func (r *RecordDB) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListPosts returns every post ordered by creation time, oldest first.
func (r *RecordDB) ListPosts(ctx context.Context) ([]models.Post, error) {
	query := `
    SELECT CAST(id AS TEXT), bid, user_id, text, pics, video_url, CAST(created_at AS TEXT),
           source, reposts_count, comments_count, attitudes_count
    FROM weibo
    ORDER BY created_at ASC;`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var (
			id, bid, userID, text, pics, videoURL, createdAt, source sql.NullString
			reposts, comments, likes                                  sql.NullInt64
		)
		if err := rows.Scan(&id, &bid, &userID, &text, &pics, &videoURL, &createdAt,
			&source, &reposts, &comments, &likes); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		created, err := parseCreatedAt(createdAt.String)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", id.String, err)
		}

		posts = append(posts, models.Post{
			ID:           id.String,
			BusinessID:   bid.String,
			CreatedAt:    created,
			Text:         text.String,
			SourceLabel:  source.String,
			AuthorID:     userID.String,
			RepostCount:  int(reposts.Int64),
			CommentCount: int(comments.Int64),
			LikeCount:    int(likes.Int64),
			ImageRefs:    splitRefs(pics.String),
			VideoRef:     strings.TrimSpace(videoURL.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// ListAttachments returns the downloaded files recorded for a post, in store order.
// Size is left unset; it is derived when the attachment is resolved.
func (r *RecordDB) ListAttachments(ctx context.Context, postID string) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT url, path FROM bins WHERE weibo_id = ? ORDER BY rowid`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments for post %s: %w", postID, err)
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		var url, path sql.NullString
		if err := rows.Scan(&url, &path); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, models.Attachment{Ref: url.String, LocalPath: path.String})
	}
	return attachments, rows.Err()
}

// ListComments returns a post's comments in store order.
func (r *RecordDB) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	query := `
    SELECT CAST(weibo_id AS TEXT), CAST(user_id AS TEXT), user_screen_name, CAST(created_at AS TEXT), text
    FROM comments
    WHERE weibo_id = ?
    ORDER BY rowid;`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var postRef, userID, name, createdAt, text sql.NullString
		if err := rows.Scan(&postRef, &userID, &name, &createdAt, &text); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, models.Comment{
			PostID:     postRef.String,
			AuthorID:   userID.String,
			AuthorName: name.String,
			CreatedAt:  createdAt.String,
			Text:       text.String,
		})
	}
	return comments, rows.Err()
}

func parseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range createdAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised created_at %q", s)
}

// splitRefs splits the comma-joined pics column, dropping empty entries.
func splitRefs(pics string) []string {
	var refs []string
	for _, ref := range strings.Split(pics, ",") {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}
