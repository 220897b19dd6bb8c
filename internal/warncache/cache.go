// Package warncache persists how often, and when, each installation warning
// has been shown.
//
// The cache is scoped to one installation environment: every entry shares the
// fingerprint stored in the file, and a fingerprint mismatch discards all of
// them. Reinstalling, moving the game to another drive or reinstalling the OS
// therefore starts the warning history from scratch.
//
// Persistence is write-through. Every mutation is followed by a full rewrite
// of the file, and a damaged or foreign file is treated as an empty cache.
package warncache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"modcheck/internal/logging"
)

// Entry is the throttling state of one warning condition.
type Entry struct {
	// ShownCount is the number of times the warning was displayed. Never decreases.
	ShownCount uint32

	// LastShownAt is the most recent display, zero if never shown.
	LastShownAt time.Time

	// InitialPhaseComplete is set once the initial warning budget is used up.
	InitialPhaseComplete bool
}

// Never reports whether the warning was never displayed.
func (e Entry) Never() bool { return e.LastShownAt.IsZero() }

// Cache is the in-memory view of the warning cache file. It is not safe for
// concurrent use.
type Cache struct {
	path        string
	fingerprint string
	entries     map[string]Entry
	logger      *zap.Logger

	loaded  bool
	discard error
}

// New returns an empty cache that will be saved to path.
func New(path string, logger *zap.Logger) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]Entry),
		logger:  logging.For(logger, logging.CategoryCache),
	}
}

// Load reads the cache file at path. It never fails: a missing, unreadable,
// foreign, outdated or damaged file yields an empty cache, and the reason is
// logged and kept in DiscardReason.
func Load(path string, logger *zap.Logger) *Cache {
	c := New(path, logger)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("No warning cache yet", zap.String("path", path))
			return c
		}
		c.discard = err
		c.logger.Warn("Warning cache unreadable, starting clean", zap.String("path", path), zap.Error(err))
		return c
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		c.discard = err
		c.logger.Info("Discarding warning cache", zap.String("path", path), zap.Error(err))
		return c
	}

	c.fingerprint = snap.Fingerprint
	c.entries = snap.Entries
	c.loaded = true
	c.logger.Debug("Warning cache loaded",
		zap.String("path", path),
		zap.Int("entries", len(c.entries)))
	return c
}

// Path returns the file the cache is saved to.
func (c *Cache) Path() string { return c.path }

// Fingerprint returns the environment fingerprint the entries belong to.
func (c *Cache) Fingerprint() string { return c.fingerprint }

// Loaded reports whether the cache was read from an existing, valid file.
func (c *Cache) Loaded() bool { return c.loaded }

// DiscardReason returns why an existing file was ignored by Load, or nil.
func (c *Cache) DiscardReason() error { return c.discard }

// Reconcile compares the stored fingerprint with the live one. On mismatch all
// entries are dropped, the new fingerprint is adopted and the cache is saved.
// It reports whether a reset happened.
func (c *Cache) Reconcile(fingerprint string) bool {
	if c.fingerprint == fingerprint {
		return false
	}

	c.logger.Info("Resetting warning cache (environment changed)",
		zap.Int("dropped_entries", len(c.entries)),
		zap.Bool("had_fingerprint", c.fingerprint != ""))

	c.fingerprint = fingerprint
	c.entries = make(map[string]Entry)
	c.SaveOrLog()
	return true
}

// Get returns the entry for key.
func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Put stores the entry for key. LastShownAt is truncated to whole seconds,
// the resolution of the file format. Put does not save.
func (c *Cache) Put(key string, e Entry) {
	e.LastShownAt = fromUnixSeconds(unixSeconds(e.LastShownAt))
	c.entries[key] = e
}

// Keys returns the entry keys in sorted order.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int { return len(c.entries) }

// Reset drops every entry but keeps the fingerprint. It does not save.
func (c *Cache) Reset() {
	c.entries = make(map[string]Entry)
}

// Snapshot returns a copy of the cache content.
func (c *Cache) Snapshot() Snapshot {
	entries := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		entries[k] = e
	}
	return Snapshot{Fingerprint: c.fingerprint, Entries: entries}
}

// Save rewrites the cache file. The content goes to a temporary file in the
// same directory which then replaces the old file, so readers never observe
// a partial write.
func (c *Cache) Save() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := Encode(tmp, c.Snapshot()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode warning cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync warning cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close warning cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("failed to replace warning cache: %w", err)
	}
	return nil
}

// SaveOrLog saves the cache and logs a failure instead of returning it.
// The next successful save writes the full state again.
func (c *Cache) SaveOrLog() bool {
	if err := c.Save(); err != nil {
		c.logger.Warn("Failed to persist warning cache", zap.String("path", c.path), zap.Error(err))
		return false
	}
	return true
}
