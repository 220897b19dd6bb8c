// Package watch re-runs a callback when marker files under the installation
// root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modcheck/internal/integrity"
	"modcheck/internal/logging"
)

// DefaultDebounce batches the burst of events a mod manager produces when it
// copies a pack.
const DefaultDebounce = 500 * time.Millisecond

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Evaluations   int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches the directories holding the marker files of a condition
// table. Directories that do not exist yet are covered by watching their
// nearest existing ancestor inside the root.
type Watcher struct {
	root     string
	targets  []string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   *zap.Logger

	mu      sync.Mutex
	watched map[string]bool
	stats   Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last event before onChange
// runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logging.For(logger, logging.CategoryWatch) }
}

// New creates a watcher for the marker directories of conds under root.
func New(root string, conds []integrity.Condition, onChange func(ctx context.Context), opts ...Option) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		targets:  targetDirs(root, conds),
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   zap.NewNop(),
		watched:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func targetDirs(root string, conds []integrity.Condition) []string {
	seen := make(map[string]bool)
	for _, c := range conds {
		for _, rel := range append([]string{c.Path}, c.RequirePresent...) {
			seen[filepath.Join(root, filepath.FromSlash(path.Dir(rel)))] = true
		}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Targets returns the directories the watcher is interested in.
func (w *Watcher) Targets() []string { return w.targets }

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if n := w.addWatches(fw); n == 0 {
		return fmt.Errorf("nothing to watch under %s", w.root)
	}

	changes := make(chan struct{}, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.eventLoop(gctx, fw, changes) })
	g.Go(func() error { return w.debounceLoop(gctx, changes) })

	err = g.Wait()
	w.logger.Info("Watcher stopped")
	return err
}

// addWatches makes sure every target, or its nearest existing ancestor, is
// watched. It returns the number of watched directories.
func (w *Watcher) addWatches(fw *fsnotify.Watcher) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, target := range w.targets {
		dir := w.nearestExisting(target)
		if dir == "" || w.watched[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("Failed to watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.watched[dir] = true
		w.logger.Debug("Watching directory", zap.String("dir", dir))
	}
	return len(w.watched)
}

// forget drops p and every watched directory below it, so a recreated tree
// is watched again. fsnotify removes the watches of deleted or moved directories
// itself. It reports whether anything was dropped.
func (w *Watcher) forget(p string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	dropped := false
	for dir := range w.watched {
		if dir == p || strings.HasPrefix(dir, p+string(filepath.Separator)) {
			delete(w.watched, dir)
			dropped = true
			w.logger.Debug("Directory gone, no longer watched", zap.String("dir", dir))
		}
	}
	return dropped
}

func (w *Watcher) nearestExisting(dir string) string {
	for {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
		if dir == w.root {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir || !within(w.root, parent) {
			return ""
		}
		dir = parent
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// relevant reports whether an event on p can affect a marker file.
func (w *Watcher) relevant(p string) bool {
	for _, target := range w.targets {
		if p == target || filepath.Dir(p) == target {
			return true
		}
		if strings.HasPrefix(target, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) eventLoop(ctx context.Context, fw *fsnotify.Watcher, changes chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if w.forget(event.Name) {
					w.addWatches(fw)
				}
			}

			w.mu.Lock()
			w.stats.Events++
			w.stats.LastEventPath = event.Name
			w.stats.LastEventTime = time.Now()
			w.mu.Unlock()
			w.logger.Debug("Marker change", zap.String("path", event.Name), zap.String("op", event.Op.String()))

			if event.Has(fsnotify.Create) {
				w.addWatches(fw)
			}
			select {
			case changes <- struct{}{}:
			default:
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context, changes <-chan struct{}) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			timer.Reset(w.debounce)
		case <-timer.C:
			w.mu.Lock()
			w.stats.Evaluations++
			w.mu.Unlock()
			w.onChange(ctx)
		}
	}
}
