package ledger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		Path:          filepath.Join(t.TempDir(), "posted_urls.txt"),
		RetentionDays: 90,
		MaxEntries:    5000,
	}, logger)
}

func TestRecordThenLoad(t *testing.T) {
	store := newTestStore(t)

	store.Record("https://example.com/a")
	store.Record("https://example.com/b")

	live := store.Load()

	assert.Contains(t, live, "https://example.com/a")
	assert.Contains(t, live, "https://example.com/b")
	assert.Len(t, live, 2)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	assert.Empty(t, store.Load())
}

func TestLoad_ExcludesExpiredEntries(t *testing.T) {
	store := newTestStore(t)

	posted := time.Now()
	store.now = func() time.Time { return posted }
	store.Record("https://example.com/old")

	store.now = func() time.Time { return posted.Add(91 * 24 * time.Hour) }
	live := store.Load()

	assert.NotContains(t, live, "https://example.com/old")
}

func TestLoad_LegacyLinesNeverExpire(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.path, []byte("https://example.com/legacy\n"), 0o644))

	store.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	live := store.Load()

	assert.Contains(t, live, "https://example.com/legacy")
}

func TestLoad_UnparseableTimestampKeepsWholeLine(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.path, []byte("https://example.com/x|garbage\n"), 0o644))

	live := store.Load()

	assert.Contains(t, live, "https://example.com/x|garbage")
}

func TestPurge_KeepsNewestEntries(t *testing.T) {
	store := newTestStore(t)
	store.maxEntries = 2

	base := time.Now()
	for i, url := range []string{"https://x/1", "https://x/2", "https://x/3", "https://x/4"} {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		store.Record(url)
	}

	store.Purge()

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "https://x/3")
	assert.Contains(t, content, "https://x/4")
	assert.NotContains(t, content, "https://x/1")
	assert.NotContains(t, content, "https://x/2")
	assert.Len(t, strings.Fields(content), 2)
}

func TestPurge_LegacyLinesSortOldest(t *testing.T) {
	store := newTestStore(t)
	store.maxEntries = 1

	require.NoError(t, os.WriteFile(store.path, []byte("https://x/legacy\n"), 0o644))
	store.Record("https://x/new")

	store.Purge()

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "https://x/new")
	assert.NotContains(t, string(data), "https://x/legacy")
}

func TestLoad_TriggersPurgeOverCap(t *testing.T) {
	store := newTestStore(t)
	store.maxEntries = 2

	store.Record("https://x/1")
	store.Record("https://x/2")
	store.Record("https://x/3")

	live := store.Load()
	assert.Len(t, live, 3)

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(string(data)), 2)
}
