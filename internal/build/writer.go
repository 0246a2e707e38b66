package build

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Writer reconciles site_dir with the files of one build. Files whose bytes
// are unchanged are left alone, files not produced by the build are removed
// by Finish, and directories left empty are pruned.
type Writer struct {
	root string

	mu        sync.Mutex
	kept      map[string]bool
	written   []string
	unchanged []string
	removed   []string
}

// NewWriter creates a writer for root. The directory is created on first write.
func NewWriter(root string) *Writer {
	return &Writer{root: root, kept: map[string]bool{}}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// Write stores data at the slash separated path rel.
func (w *Writer) Write(rel string, data []byte) error {
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return fmt.Errorf("refusing to write outside site_dir: %s", rel)
	}
	full := filepath.Join(w.root, filepath.FromSlash(rel))

	w.mu.Lock()
	defer w.mu.Unlock()

	w.kept[rel] = true
	// #nosec G304 -- full is inside site_dir.
	if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, data) {
		w.unchanged = append(w.unchanged, rel)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", rel, err)
	}
	// Replace a directory occupying the file name from an older layout.
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		if err := os.RemoveAll(full); err != nil {
			return err
		}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil { // #nosec G306 -- site files are public
		return fmt.Errorf("write %s: %w", rel, err)
	}
	w.written = append(w.written, rel)
	return nil
}

// Has reports whether rel was produced by this build.
func (w *Writer) Has(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kept[rel]
}

// Finish removes stale files and empty directories.
func (w *Writer) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.root); os.IsNotExist(err) {
		return nil
	}
	var dirs []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == w.root {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			dirs = append(dirs, p)
			return nil
		}
		if w.kept[rel] {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		w.removed = append(w.removed, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune site_dir: %w", err)
	}
	// Deepest directories first so parents become empty in turn.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		entries, readErr := os.ReadDir(d)
		if readErr == nil && len(entries) == 0 {
			if err := os.Remove(d); err != nil {
				return fmt.Errorf("remove empty directory: %w", err)
			}
		}
	}
	return nil
}

// Stats returns the sorted written, unchanged and removed paths.
func (w *Writer) Stats() (written, unchanged, removed []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return sortedCopy(w.written), sortedCopy(w.unchanged), sortedCopy(w.removed)
}

// Files returns every path produced by this build.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.kept))
	for k := range w.kept {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func readFile(p string) ([]byte, error) {
	// #nosec G304 -- p comes from docs_dir discovery.
	return os.ReadFile(p)
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
