package warncache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data", "mod_warnings.bin"), zap.NewNop())
}

func TestLoad_MissingFile(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "nope.bin"), zap.NewNop())

	assert.False(t, c.Loaded())
	assert.NoError(t, c.DiscardReason())
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Fingerprint())
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	c := newTestCache(t)
	c.Reconcile("fp-1")

	shown := time.Date(2026, 3, 1, 12, 30, 15, 0, time.UTC)
	c.Put("LiqMixAISlop", Entry{ShownCount: 1, LastShownAt: shown})
	c.Put("MGS2_AfevisBugFixCompilation", Entry{ShownCount: 3, LastShownAt: shown.Add(time.Hour), InitialPhaseComplete: true})
	c.Put("Unseen", Entry{})
	require.NoError(t, c.Save())

	loaded := Load(c.Path(), zap.NewNop())
	require.True(t, loaded.Loaded())
	if diff := cmp.Diff(c.Snapshot(), loaded.Snapshot()); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
	assert.Equal(t, []string{"LiqMixAISlop", "MGS2_AfevisBugFixCompilation", "Unseen"}, loaded.Keys())

	e, ok := loaded.Get("Unseen")
	require.True(t, ok)
	assert.True(t, e.Never())
}

func TestCache_PutTruncatesToSeconds(t *testing.T) {
	c := newTestCache(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 999_000_000, time.FixedZone("CET", 3600))
	c.Put("k", Entry{ShownCount: 1, LastShownAt: at})

	e, _ := c.Get("k")
	assert.True(t, e.LastShownAt.Equal(at.Truncate(time.Second)))
	assert.Equal(t, time.UTC, e.LastShownAt.Location())
}

func TestCache_ReconcileResetsOnMismatch(t *testing.T) {
	c := newTestCache(t)
	c.Reconcile("old")
	c.Put("LiqMixAISlop", Entry{ShownCount: 2, LastShownAt: time.Unix(1_700_000_000, 0).UTC()})
	require.NoError(t, c.Save())

	reloaded := Load(c.Path(), zap.NewNop())
	assert.False(t, reloaded.Reconcile("old"), "matching fingerprint must not reset")
	assert.Equal(t, 1, reloaded.Len())

	assert.True(t, reloaded.Reconcile("new"))
	assert.Zero(t, reloaded.Len())
	assert.Equal(t, "new", reloaded.Fingerprint())

	// The reset is persisted without an explicit Save.
	onDisk := Load(c.Path(), zap.NewNop())
	assert.Equal(t, "new", onDisk.Fingerprint())
	assert.Zero(t, onDisk.Len())
}

func TestCache_ReconcileOnFirstRun(t *testing.T) {
	c := newTestCache(t)
	assert.True(t, c.Reconcile("fp"))

	_, err := os.Stat(c.Path())
	assert.NoError(t, err, "first reconcile should create the cache file")
}

func TestCache_ResetKeepsFingerprint(t *testing.T) {
	c := newTestCache(t)
	c.Reconcile("fp")
	c.Put("a", Entry{ShownCount: 1})
	c.Reset()

	assert.Zero(t, c.Len())
	assert.Equal(t, "fp", c.Fingerprint())
}

func TestCache_SaveLeavesNoTempFiles(t *testing.T) {
	c := newTestCache(t)
	c.Reconcile("fp")
	for i := 0; i < 3; i++ {
		c.Put("k", Entry{ShownCount: uint32(i + 1)})
		require.NoError(t, c.Save())
	}

	files, err := os.ReadDir(filepath.Dir(c.Path()))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "mod_warnings.bin", files[0].Name())
}

func TestCache_SaveOrLogReportsFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	c := New(filepath.Join(blocker, "mod_warnings.bin"), zap.NewNop())
	assert.Error(t, c.Save())
	assert.False(t, c.SaveOrLog())
}

func TestLoad_DamagedFilesStartClean(t *testing.T) {
	c := newTestCache(t)
	c.Reconcile("fp")
	c.Put("LiqMixAISlop", Entry{ShownCount: 1, LastShownAt: time.Unix(1_700_000_000, 0).UTC()})
	require.NoError(t, c.Save())

	good, err := os.ReadFile(c.Path())
	require.NoError(t, err)

	flipped := append([]byte(nil), good...)
	flipped[len(flipped)/2] ^= 0xff

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrBadSchema},
		{"foreign", []byte("MZ\x90\x00 this is not a cache"), ErrBadSchema},
		{"truncated", good[:len(good)-5], ErrChecksum},
		{"bit flip", flipped, ErrChecksum},
		{"header only", good[:2+len(SchemaTag)+2], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mod_warnings.bin")
			require.NoError(t, os.WriteFile(path, tt.data, 0644))

			loaded := Load(path, zap.NewNop())
			assert.False(t, loaded.Loaded())
			assert.Zero(t, loaded.Len())
			assert.Empty(t, loaded.Fingerprint())
			assert.True(t, errors.Is(loaded.DiscardReason(), tt.want), "got %v", loaded.DiscardReason())
		})
	}
}
