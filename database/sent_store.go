package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"weibo-relay/models"
	"weibo-relay/utils"
)

// ResendInterval is how long a delivered post waits before it is amended.
const ResendInterval = 24 * time.Hour

var (
	// ErrNotFound is returned when a post has no delivery record.
	ErrNotFound = errors.New("delivery record not found")
	// ErrIdentityConflict marks a post whose id and business id match different records.
	ErrIdentityConflict = errors.New("post id and business id match different delivery records")
)

// SentStore persists which posts have been delivered and when.
type SentStore interface {
	// Get returns the record matching the post by id, else by business id.
	Get(ctx context.Context, post models.Post) (models.DeliveryRecord, bool, error)

	// Put inserts or overwrites the post's record and stamps it with the current time.
	Put(ctx context.Context, post models.Post, messageRef string, status models.Status) error

	// IsDueForResend reports whether a record exists and is at least ResendInterval old.
	IsDueForResend(ctx context.Context, post models.Post) (bool, error)

	// MessageRef returns the stored message reference or ErrNotFound.
	MessageRef(ctx context.Context, post models.Post) (string, error)

	Close() error
}

// Option configures a SentStore.
type Option func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		o.now = now
	}
}

func applyOptions(opts []Option) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OpenSentStore opens the store for the configured driver ("json" or "sqlite").
func OpenSentStore(driver, path string, opts ...Option) (SentStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "json":
		return NewJSONSentStore(path, opts...), nil
	case "sqlite", "sqlite3":
		return NewSQLiteSentStore(path, opts...)
	default:
		return nil, fmt.Errorf("unknown state driver: %s", driver)
	}
}

// matchRecord finds the record for post: by post id first, else by business id.
// The first match in store order wins. conflict is the index of a different
// record sharing the business id, or -1.
func matchRecord(records []models.DeliveryRecord, post models.Post) (idx, conflict int) {
	byID, byBID := -1, -1
	for i, rec := range records {
		if byID == -1 && post.ID != "" && rec.PostID == post.ID {
			byID = i
		}
		if byBID == -1 && post.BusinessID != "" && rec.BusinessID == post.BusinessID {
			byBID = i
		}
	}

	switch {
	case byID != -1 && byBID != -1 && byID != byBID:
		return byID, byBID
	case byID != -1:
		return byID, -1
	default:
		return byBID, -1
	}
}

func warnConflict(post models.Post, conflict models.DeliveryRecord) {
	utils.Warn("database", "matchRecord", fmt.Sprintf("%v: post %s / %s, business id also matches record for post %s; using the post id match",
		ErrIdentityConflict, post.ID, post.BusinessID, conflict.PostID))
}

func dueForResend(rec models.DeliveryRecord, now time.Time) bool {
	return now.Sub(rec.UpdatedAt) >= ResendInterval
}

// JSONSentStore keeps delivery records in a JSON array file.
// Every write rewrites the whole file through a temporary file and rename.
type JSONSentStore struct {
	path  string
	mutex sync.Mutex
	now   func() time.Time
}

// NewJSONSentStore creates a store backed by the file at path. The file does
// not have to exist yet.
func NewJSONSentStore(path string, opts ...Option) *JSONSentStore {
	o := applyOptions(opts)
	return &JSONSentStore{path: path, now: o.now}
}

// Get implements SentStore.
func (s *JSONSentStore) Get(ctx context.Context, post models.Post) (models.DeliveryRecord, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.load()
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
func (s *JSONSentStore) Put(ctx context.Context, post models.Post, messageRef string, status models.Status) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	rec := models.DeliveryRecord{
		PostID:     post.ID,
		BusinessID: post.BusinessID,
		MessageRef: messageRef,
		Status:     status,
		UpdatedAt:  s.now(),
	}

	idx, conflict := matchRecord(records, post)
	if conflict != -1 {
		warnConflict(post, records[conflict])
	}
	if idx == -1 {
		records = append(records, rec)
	} else {
		records[idx] = rec
	}

	return s.save(records)
}

// IsDueForResend implements SentStore.
func (s *JSONSentStore) IsDueForResend(ctx context.Context, post models.Post) (bool, error) {
	rec, ok, err := s.Get(ctx, post)
	if err != nil || !ok {
		return false, err
	}
	return dueForResend(rec, s.now()), nil
}

// MessageRef implements SentStore.
func (s *JSONSentStore) MessageRef(ctx context.Context, post models.Post) (string, error) {
	rec, ok, err := s.Get(ctx, post)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("post %s (%s): %w", post.ID, post.BusinessID, ErrNotFound)
	}
	return rec.MessageRef, nil
}

// Close implements SentStore.
func (s *JSONSentStore) Close() error { return nil }

// load reads the state file. A missing or blank file is an empty store.
func (s *JSONSentStore) load() ([]models.DeliveryRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.DeliveryRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.DeliveryRecord{}, nil
	}

	var records []models.DeliveryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if records == nil {
		records = []models.DeliveryRecord{}
	}
	return records, nil
}

// save atomically replaces the state file with records.
func (s *JSONSentStore) save(records []models.DeliveryRecord) error {
	// Ensure the directory exists.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
