package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"weibo-relay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// openStores returns one store per driver, all backed by files in a temp dir.
func openStores(t *testing.T, c *clock) map[string]SentStore {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]SentStore{}
	for driver, name := range map[string]string{"json": "sent.json", "sqlite": "sent.db"} {
		store, err := OpenSentStore(driver, filepath.Join(dir, name), WithClock(c.Now))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		stores[driver] = store
	}
	return stores
}

func TestSentStore_BootstrapEmpty(t *testing.T) {
	for driver, store := range openStores(t, newClock()) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			post := models.Post{ID: "1", BusinessID: "A"}

			_, found, err := store.Get(ctx, post)
			require.NoError(t, err)
			assert.False(t, found)

			due, err := store.IsDueForResend(ctx, post)
			require.NoError(t, err)
			assert.False(t, due)

			_, err = store.MessageRef(ctx, post)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSentStore_PutUpserts(t *testing.T) {
	c := newClock()
	for driver, store := range openStores(t, c) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			post := models.Post{ID: "1", BusinessID: "A"}

			require.NoError(t, store.Put(ctx, post, "m1", models.StatusSent))
			rec, found, err := store.Get(ctx, post)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "m1", rec.MessageRef)
			assert.Equal(t, models.StatusSent, rec.Status)
			assert.True(t, rec.UpdatedAt.Equal(c.now))

			require.NoError(t, store.Put(ctx, post, "m1", models.StatusResent))
			rec, _, err = store.Get(ctx, post)
			require.NoError(t, err)
			assert.Equal(t, models.StatusResent, rec.Status)

			// Lookup by business id alone finds the same record.
			ref, err := store.MessageRef(ctx, models.Post{BusinessID: "A"})
			require.NoError(t, err)
			assert.Equal(t, "m1", ref)
		})
	}
}

func TestSentStore_ResendBoundary(t *testing.T) {
	c := newClock()
	for driver, store := range openStores(t, c) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			post := models.Post{ID: "p-" + driver, BusinessID: "b-" + driver}
			start := c.now
			defer func() { c.now = start }()

			require.NoError(t, store.Put(ctx, post, "m", models.StatusSent))

			c.Advance(23*time.Hour + 59*time.Minute)
			due, err := store.IsDueForResend(ctx, post)
			require.NoError(t, err)
			assert.False(t, due)

			c.now = start.Add(ResendInterval)
			due, err = store.IsDueForResend(ctx, post)
			require.NoError(t, err)
			assert.True(t, due)
		})
	}
}

func TestSentStore_IdentityConflictPrefersPostID(t *testing.T) {
	for driver, store := range openStores(t, newClock()) {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, models.Post{ID: "1", BusinessID: "A"}, "m1", models.StatusSent))
			require.NoError(t, store.Put(ctx, models.Post{ID: "2", BusinessID: "B"}, "m2", models.StatusSent))

			conflicting := models.Post{ID: "2", BusinessID: "A"}
			rec, found, err := store.Get(ctx, conflicting)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "m2", rec.MessageRef)

			require.NoError(t, store.Put(ctx, conflicting, "m3", models.StatusResent))
			rec, _, err = store.Get(ctx, models.Post{ID: "1"})
			require.NoError(t, err)
			assert.Equal(t, "m1", rec.MessageRef)
			rec, _, err = store.Get(ctx, models.Post{ID: "2"})
			require.NoError(t, err)
			assert.Equal(t, "m3", rec.MessageRef)
		})
	}
}

func TestJSONSentStore_ReadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.json")
	legacy := `[{"post_id":"1","business_id":"A","message_ref":1234567890123,"status":1,"updated_at":"2024-05-01T10:00:00.123456"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	c := &clock{now: time.Date(2024, 5, 2, 10, 0, 1, 0, time.Local)}
	store := NewJSONSentStore(path, WithClock(c.Now))
	ctx := context.Background()

	rec, found, err := store.Get(ctx, models.Post{ID: "1"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1234567890123", rec.MessageRef)
	assert.Equal(t, models.StatusSent, rec.Status)

	due, err := store.IsDueForResend(ctx, models.Post{ID: "1"})
	require.NoError(t, err)
	assert.True(t, due)
}

func TestJSONSentStore_ReadsFirstRelayStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.json")
	state := `[{"id": "4990000000000001", "bid": "NabcDEF", "msg_id": 1234567890123456789, "status": 2, "updated_at": "2024-05-01T10:00:00.123456"}, ` +
		`{"id": "4990000000000002", "bid": "NghiJKL", "msg_id": 1234567890123456790, "status": 1, "updated_at": "2024-05-01T11:00:00.654321"}]`
	require.NoError(t, os.WriteFile(path, []byte(state), 0o644))

	c := &clock{now: time.Date(2024, 5, 2, 12, 0, 0, 0, time.Local)}
	store := NewJSONSentStore(path, WithClock(c.Now))
	ctx := context.Background()

	rec, found, err := store.Get(ctx, models.Post{ID: "4990000000000001", BusinessID: "NabcDEF"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.StatusResent, rec.Status)
	assert.Equal(t, "1234567890123456789", rec.MessageRef)

	second := models.Post{ID: "4990000000000002", BusinessID: "NghiJKL"}
	due, err := store.IsDueForResend(ctx, second)
	require.NoError(t, err)
	assert.True(t, due)

	// Updating a record keeps the others and rewrites the file with current keys.
	require.NoError(t, store.Put(ctx, second, "1234567890123456790", models.StatusResent))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"post_id": "4990000000000001"`)
	assert.NotContains(t, string(data), `"msg_id"`)

	rec, found, err = store.Get(ctx, models.Post{BusinessID: "NabcDEF"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1234567890123456789", rec.MessageRef)
}

func TestJSONSentStore_BlankFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	store := NewJSONSentStore(path)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, models.Post{ID: "1", BusinessID: "A"}, "m", models.StatusSent))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message_ref": "m"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestJSONSentStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := NewJSONSentStore(path).Get(context.Background(), models.Post{ID: "1"})
	assert.Error(t, err)
}

func TestOpenSentStore_UnknownDriver(t *testing.T) {
	_, err := OpenSentStore("redis", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}
