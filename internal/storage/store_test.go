package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxAge time.Duration) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), maxAge)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestVisionCache_RoundTrip(t *testing.T) {
	store := newTestStore(t, 0)

	missing, err := store.GetVisionCache("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SetVisionCache("k1", &VisionCacheEntry{Reply: `{"brand":"Sony"}`, Model: "gemini"}))

	got, err := store.GetVisionCache("k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"brand":"Sony"}`, got.Reply)
	assert.Equal(t, "gemini", got.Model)
}

func TestVisionCache_Overwrite(t *testing.T) {
	store := newTestStore(t, 0)

	require.NoError(t, store.SetVisionCache("k1", &VisionCacheEntry{Reply: "first"}))
	require.NoError(t, store.SetVisionCache("k1", &VisionCacheEntry{Reply: "second"}))

	got, err := store.GetVisionCache("k1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Reply)
}

func TestVisionCache_ExpiredEntriesAreMisses(t *testing.T) {
	store := newTestStore(t, time.Hour)

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.SetVisionCache("old", &VisionCacheEntry{Reply: "stale", CreatedAt: old}))
	require.NoError(t, store.SetVisionCache("new", &VisionCacheEntry{Reply: "fresh"}))

	got, err := store.GetVisionCache("old")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.GetVisionCache("new")
	require.NoError(t, err)
	require.NotNil(t, got)

	removed, err := store.PruneVisionCache(time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
