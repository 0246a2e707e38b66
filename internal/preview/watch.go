package preview

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// watcher watches docs_dir recursively and the configuration file.
type watcher struct {
	*fsnotify.Watcher
	configPath string
}

func newWatcher(docsDir, configPath string) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create file watcher").Build()
	}
	w := &watcher{Watcher: fw}
	if abs, absErr := filepath.Abs(configPath); absErr == nil {
		w.configPath = abs
	}
	if err := w.addRecursive(docsDir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	// Editors replace files on save, so the directory is watched instead of the file.
	if w.configPath != "" {
		if err := fw.Add(filepath.Dir(w.configPath)); err != nil {
			slog.Warn("Cannot watch configuration directory", logfields.Path(w.configPath), logfields.Error(err))
		}
	}
	return w, nil
}

func (w *watcher) addRecursive(root string) error {
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return errors.FileSystemError("docs_dir not found or not a directory").
			WithContext("path", root).UserAction().Build()
	}
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.Add(p); err != nil {
				slog.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
			}
		}
		return nil
	})
}

// handle reports whether ev should trigger a rebuild and follows new directories.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if shouldIgnoreEvent(ev.Name) {
		return false
	}
	if ev.Op.Has(fsnotify.Chmod) && !ev.Op.Has(fsnotify.Write) {
		return false
	}
	if abs, err := filepath.Abs(ev.Name); err == nil && w.configPath != "" &&
		filepath.Dir(abs) == filepath.Dir(w.configPath) && abs != w.configPath && !w.watchesDocs(abs) {
		// Another file next to the configuration.
		return false
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	return true
}

// watchesDocs reports whether p is itself a watched docs directory.
func (w *watcher) watchesDocs(p string) bool {
	for _, dir := range w.WatchList() {
		if abs, err := filepath.Abs(dir); err == nil && abs == p {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent returns true for hidden, swap and temporary files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", base == "4913":
		return true
	}
	return false
}

// debouncer runs fn once events stop arriving for delay.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Trigger restarts the quiet period.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending call.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
