// Package watcher feeds filesystem events for one workspace into the
// indexing pipeline: creates and writes enqueue the file for re-indexing,
// removes and renames delete it from the index.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches a workspace root recursively and invokes callbacks with
// workspace-relative slash-separated paths. Debouncing and deduplication
// are the enqueue side's concern, not the watcher's.
type Watcher struct {
	root       string
	extensions map[string]struct{}
	onChange   func(relPath string)
	onRemove   func(relPath string)
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over root. extensions filters which files trigger
// callbacks (empty = all). onChange receives created and modified files,
// onRemove receives deleted and renamed-away files.
func New(root string, extensions []string, onChange, onRemove func(relPath string), opts ...Option) *Watcher {
	extSet := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		extSet["."+strings.TrimPrefix(strings.ToLower(e), ".")] = struct{}{}
	}
	w := &Watcher{
		root:       filepath.Clean(root),
		extensions: extSet,
		onChange:   onChange,
		onRemove:   onRemove,
		logger:     zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := addRecursive(watcher, w.root); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher started", zap.String("root", w.root))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, ok := w.relative(ev.Name)
	if !ok || skipPath(rel) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", rel))

	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(ev.Name)
			return
		}
		if w.matchExtension(rel) && w.onChange != nil {
			w.onChange(rel)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if w.matchExtension(rel) && w.onRemove != nil {
			w.onRemove(rel)
		}
	}
}

// handleNewDirectory watches a created directory and reports the files
// already inside it, which fsnotify would otherwise miss.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil {
		return
	}

	if err := addRecursive(watcher, dir); err != nil {
		w.logger.Debug("watch new directory failed", zap.String("path", dir), zap.Error(err))
	}

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, ok := w.relative(path)
		if ok && !skipPath(rel) && w.matchExtension(rel) && w.onChange != nil {
			w.onChange(rel)
		}
		return nil
	})
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) matchExtension(relPath string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

// skipPath drops events under hidden, vendor, and node_modules trees.
func skipPath(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if strings.HasPrefix(part, ".") || part == "vendor" || part == "node_modules" {
			return true
		}
	}
	return false
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
