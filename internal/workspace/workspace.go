// Package workspace manages the scratch directories used by deploys and the
// preview server. Workspaces are ephemeral: created per use, removed after.
package workspace

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/ftdocs/internal/logfields"
)

// Manager handles one workspace directory.
type Manager struct {
	baseDir string
	prefix  string
	dir     string
}

// NewManager creates a manager that makes directories named prefix-* under
// baseDir (the system temp directory when empty).
func NewManager(baseDir, prefix string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if prefix == "" {
		prefix = "ftdocs"
	}
	return &Manager{baseDir: baseDir, prefix: prefix}
}

// Create makes the workspace directory.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base: %w", err)
	}
	dir, err := os.MkdirTemp(m.baseDir, m.prefix+"-*")
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// Path returns the workspace directory, empty before Create.
func (m *Manager) Path() string { return m.dir }

// Cleanup removes the workspace directory. It is safe to call more than once.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
