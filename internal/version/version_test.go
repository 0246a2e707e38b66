package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	require.Equal(t, "ftdocs "+Version, String())

	oldCommit, oldTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = oldCommit, oldTime })
	GitCommit = "0123456789abcdef"
	BuildTime = "2026-01-02T03:04:05Z"
	require.Equal(t, "ftdocs "+Version+" (0123456, built 2026-01-02T03:04:05Z)", String())
}
