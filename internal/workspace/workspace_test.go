package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested")
	mgr := NewManager(base, "deploy")
	require.Empty(t, mgr.Path())

	require.NoError(t, mgr.Create())
	dir := mgr.Path()
	require.True(t, strings.HasPrefix(filepath.Base(dir), "deploy-"))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	require.NoError(t, mgr.Cleanup())
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, mgr.Cleanup())
}

func TestManager_Defaults(t *testing.T) {
	mgr := NewManager("", "")
	require.NoError(t, mgr.Create())
	t.Cleanup(func() { _ = mgr.Cleanup() })
	require.True(t, strings.HasPrefix(filepath.Base(mgr.Path()), "ftdocs-"))
}
