package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"weibo-relay/models"
	"weibo-relay/utils"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSentStore keeps delivery records in a SQLite table. Rowid order is
// the store order used for first-match resolution.
type SQLiteSentStore struct {
	db  *sql.DB
	now func() time.Time
}

// InitStateDB initializes a new, independent database connection for delivery state.
func InitStateDB(dbPath string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open the SQLite database. It will be created if it doesn't exist.
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// NewSQLiteSentStore opens (and creates if needed) the state database at dbPath.
func NewSQLiteSentStore(dbPath string, opts ...Option) (*SQLiteSentStore, error) {
	db, err := InitStateDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := createDeliveriesTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create deliveries table: %w", err)
	}

	utils.Info("database", "NewSQLiteSentStore", "Successfully initialized state database at "+dbPath)

	o := applyOptions(opts)
	return &SQLiteSentStore{db: db, now: o.now}, nil
}

// createDeliveriesTable creates the 'deliveries' table if it doesn't exist.
func createDeliveriesTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS deliveries (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        post_id TEXT NOT NULL,
        business_id TEXT NOT NULL,
        message_ref TEXT NOT NULL,
        status INTEGER NOT NULL,
        updated_at TEXT NOT NULL
    );`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_deliveries_post_id ON deliveries(post_id);",
		"CREATE INDEX IF NOT EXISTS idx_deliveries_business_id ON deliveries(business_id);",
	}
	for _, indexQuery := range indexes {
		if _, err := db.Exec(indexQuery); err != nil {
			utils.Warn("database", "createDeliveriesTable", fmt.Sprintf("failed to create index: %v", err))
		}
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// candidates loads every record sharing either identity with the post, in
// store order, alongside their row keys.
func candidates(ctx context.Context, q queryer, post models.Post) ([]models.DeliveryRecord, []int64, error) {
	rows, err := q.QueryContext(ctx, `
    SELECT seq, post_id, business_id, message_ref, status, updated_at
    FROM deliveries
    WHERE (post_id = ? AND post_id <> '') OR (business_id = ? AND business_id <> '')
    ORDER BY seq;`, post.ID, post.BusinessID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query delivery records: %w", err)
	}
	defer rows.Close()

	var (
		records []models.DeliveryRecord
		seqs    []int64
	)
	for rows.Next() {
		var (
			rec       models.DeliveryRecord
			seq       int64
			updatedAt string
		)
		if err := rows.Scan(&seq, &rec.PostID, &rec.BusinessID, &rec.MessageRef, &rec.Status, &updatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		if rec.UpdatedAt, err = models.ParseTimestamp(updatedAt); err != nil {
			return nil, nil, fmt.Errorf("invalid updated_at for post %s: %w", rec.PostID, err)
		}
		records = append(records, rec)
		seqs = append(seqs, seq)
	}
	return records, seqs, rows.Err()
}

// Get implements SentStore.
func (s *SQLiteSentStore) Get(ctx context.Context, post models.Post) (models.DeliveryRecord, bool, error) {
	records, _, err := candidates(ctx, s.db, post)
	if err != nil {
		return models.DeliveryRecord{}, false, err
	}
	idx, conflict := matchRecord(records, post)
	if idx == -1 {
		return models.DeliveryRecord{}, false, nil
	}
	if conflict != -1 {
		warnConflict(post, records[conflict])
	}
	return records[idx], true, nil
}

// Put implements SentStore.
func (s *SQLiteSentStore) Put(ctx context.Context, post models.Post, messageRef string, status models.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	records, seqs, err := candidates(ctx, tx, post)
	if err != nil {
		return err
	}
	idx, conflict := matchRecord(records, post)
	if conflict != -1 {
		warnConflict(post, records[conflict])
	}

	updatedAt := s.now().Format(time.RFC3339Nano)
	if idx == -1 {
		_, err = tx.ExecContext(ctx, `
        INSERT INTO deliveries (post_id, business_id, message_ref, status, updated_at)
        VALUES (?, ?, ?, ?, ?);`, post.ID, post.BusinessID, messageRef, int(status), updatedAt)
	} else {
		_, err = tx.ExecContext(ctx, `
        UPDATE deliveries SET post_id = ?, business_id = ?, message_ref = ?, status = ?, updated_at = ?
        WHERE seq = ?;`, post.ID, post.BusinessID, messageRef, int(status), updatedAt, seqs[idx])
	}
	if err != nil {
		return fmt.Errorf("failed to save delivery record for post %s: %w", post.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delivery record for post %s: %w", post.ID, err)
	}
	return nil
}

// IsDueForResend implements SentStore.
func (s *SQLiteSentStore) IsDueForResend(ctx context.Context, post models.Post) (bool, error) {
	rec, ok, err := s.Get(ctx, post)
	if err != nil || !ok {
		return false, err
	}
	return dueForResend(rec, s.now()), nil
}

// MessageRef implements SentStore.
func (s *SQLiteSentStore) MessageRef(ctx context.Context, post models.Post) (string, error) {
	rec, ok, err := s.Get(ctx, post)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("post %s (%s): %w", post.ID, post.BusinessID, ErrNotFound)
	}
	return rec.MessageRef, nil
}

// Close closes the database connection.
func (s *SQLiteSentStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
