// Package watch imports export files dropped into a directory tree.
//
// A Watcher registers every directory under Dir with fsnotify. Create and
// write events on files whose slash-separated path relative to Dir matches
// Pattern are debounced per path, then the file is read and handed to
// Import. Import errors are logged and the watcher keeps going; a file that
// was caught half-written fails to import and is retried on its next write.
//
// Thread-safety: Run owns all watcher state; do not call it twice
// concurrently on the same Watcher.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is the quiet period after the last event on a path before
// it is imported.
const DefaultSettle = 100 * time.Millisecond

// ImportFunc consumes the content of one matched file.
type ImportFunc func(ctx context.Context, path string, data []byte) error

// Watcher imports matching files as they appear or change under Dir.
type Watcher struct {
	Dir     string
	Pattern string
	Import  ImportFunc

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Settle defaults to DefaultSettle.
	Settle time.Duration

	// Ready, if set, is called once the initial directories are watched.
	Ready func()
}

// Run watches until ctx is cancelled, then returns nil. It fails early when
// Dir cannot be watched or Pattern is not a valid glob.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Import == nil {
		return errors.New("watch: no import function")
	}
	if !doublestar.ValidatePattern(w.Pattern) {
		return fmt.Errorf("watch: invalid pattern %q", w.Pattern)
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	l := &loop{
		w:       w,
		fw:      fw,
		logger:  logger,
		settle:  settle,
		pending: make(map[string]*time.Timer),
		due:     make(chan string),
	}
	defer l.stopTimers()

	if _, err := l.addTree(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	logger.Info("watching", "dir", w.Dir, "pattern", w.Pattern)
	if w.Ready != nil {
		w.Ready()
	}
	return l.run(ctx)
}

type loop struct {
	w       *Watcher
	fw      *fsnotify.Watcher
	logger  *slog.Logger
	settle  time.Duration
	pending map[string]*time.Timer
	due     chan string
}

func (l *loop) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("watch stopped", "dir", l.w.Dir)
			return nil

		case ev, ok := <-l.fw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			l.handle(ctx, ev)

		case err, ok := <-l.fw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			l.logger.Error("watcher error", "error", err)

		case path := <-l.due:
			delete(l.pending, path)
			l.importFile(ctx, path)
		}
	}
}

func (l *loop) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	l.logger.Debug("event received", "name", ev.Name, "op", ev.Op.String())

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if !ev.Has(fsnotify.Create) {
			return
		}
		// Files written before the watch was added produce no events.
		files, err := l.addTree(ev.Name)
		if err != nil {
			l.logger.Warn("cannot watch directory", "dir", ev.Name, "error", err)
		}
		for _, f := range files {
			l.schedule(ctx, f)
		}
		return
	}
	if l.matches(ev.Name) {
		l.schedule(ctx, ev.Name)
	}
}

// schedule (re)starts the settle timer of path.
func (l *loop) schedule(ctx context.Context, path string) {
	if t, ok := l.pending[path]; ok {
		t.Reset(l.settle)
		return
	}
	l.pending[path] = time.AfterFunc(l.settle, func() {
		select {
		case l.due <- path:
		case <-ctx.Done():
		}
	})
}

func (l *loop) stopTimers() {
	for _, t := range l.pending {
		t.Stop()
	}
}

func (l *loop) importFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("cannot read file", "path", path, "error", err)
		return
	}
	if len(data) == 0 {
		return
	}
	if err := l.w.Import(ctx, path, data); err != nil {
		l.logger.Warn("import failed", "path", path, "error", err)
		return
	}
	l.logger.Info("file imported", "path", path, "bytes", len(data))
}

// matches reports whether path, relative to Dir, matches Pattern.
func (l *loop) matches(path string) bool {
	rel, err := filepath.Rel(l.w.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	ok, err := doublestar.Match(l.w.Pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// addTree watches root and every non-hidden directory below it, and returns
// the matching files already present.
func (l *loop) addTree(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if l.matches(path) {
				files = append(files, path)
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return l.fw.Add(path)
	})
	return files, err
}
