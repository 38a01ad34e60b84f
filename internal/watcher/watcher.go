// Package watcher reports changes to the local content tree. The dev server
// relays them to connected browsers.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Kind groups content files by role
type Kind string

const (
	KindConfig Kind = "config"
	KindPage   Kind = "page"
	KindItem   Kind = "item"
)

// KindOf classifies a content-relative path
func KindOf(rel string) Kind {
	switch {
	case strings.HasPrefix(rel, "config/"):
		return KindConfig
	case strings.HasPrefix(rel, "pages/"):
		return KindPage
	}
	return KindItem
}

// watchedExts are the content file types worth reporting
var watchedExts = map[string]bool{".md": true, ".json": true}

// Options configures a Watcher
type Options struct {
	Root     string
	Debounce time.Duration
	// Ignore holds doublestar patterns matched against content-relative
	// paths and their parent directories.
	Ignore []string
}

// Watcher follows a content directory recursively
type Watcher struct {
	root      string
	ignore    []string
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	stopCh    chan struct{}
}

// New creates a watcher. Nothing is watched until Start.
func New(opts Options) (*Watcher, error) {
	for _, p := range opts.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", opts.Root, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:   root,
		ignore: opts.Ignore,
		fs:     fsw,
		stopCh: make(chan struct{}),
	}
	w.debouncer = NewDebouncer(opts.Debounce, func(rel string) bool {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		return err == nil
	})
	return w, nil
}

// Start watches the root and every subdirectory. The root is created when
// missing so a first sync can be observed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", w.root, err)
	}
	if err := w.addTree(w.root, false); err != nil {
		return err
	}
	go w.loop(ctx)

	slog.Info("watching content", "path", w.root, "ignore_patterns", len(w.ignore))
	return nil
}

// Changes returns the channel of debounced changes
func (w *Watcher) Changes() <-chan Change {
	return w.debouncer.Changes()
}

// Flush emits pending changes without waiting for their quiet period
func (w *Watcher) Flush() {
	w.debouncer.Flush()
}

// Close stops watching and closes the Changes channel
func (w *Watcher) Close() error {
	select {
	case <-w.stopCh:
		return nil
	default:
	}
	close(w.stopCh)
	err := w.fs.Close()
	w.debouncer.Stop()
	return err
}

// addTree watches dir and its subdirectories. With report set, files
// already present are reported; they may have been written before the
// directory was watched.
func (w *Watcher) addTree(dir string, report bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("error walking content", "path", p, "error", err)
			return nil
		}
		rel, ok := w.rel(p)
		if !ok {
			return nil
		}
		if rel != "." && w.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if err := w.fs.Add(p); err != nil {
				slog.Warn("failed to watch directory", "path", p, "error", err)
			}
			return nil
		}
		if report && watchedExts[path.Ext(rel)] {
			w.debouncer.Add(rel)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, ok := w.rel(ev.Name)
	if !ok || w.ignored(rel) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name, true); err != nil {
				slog.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}
	if ev.Op == fsnotify.Chmod || !watchedExts[path.Ext(rel)] {
		return
	}
	w.debouncer.Add(rel)
}

// rel returns the slash-separated path of p below the root
func (w *Watcher) rel(p string) (string, bool) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ignored reports whether rel or one of its parent directories matches an
// ignore pattern
func (w *Watcher) ignored(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, pattern := range w.ignore {
		for i := len(parts); i > 0; i-- {
			if ok, _ := doublestar.Match(pattern, strings.Join(parts[:i], "/")); ok {
				return true
			}
		}
	}
	return false
}
