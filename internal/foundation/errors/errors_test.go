package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_DefaultsAndConvenience(t *testing.T) {
	err := NewError(CategoryBuild, "render failed").Build()
	require.Equal(t, CategoryBuild, err.Category())
	require.Equal(t, SeverityError, err.Severity())
	require.Equal(t, RetryNever, err.RetryStrategy())
	require.False(t, err.CanRetry())

	gitErr := GitError("push failed").WithContext("branch", "gh-pages").Build()
	require.True(t, gitErr.CanRetry())
	require.True(t, gitErr.IsTransient())
	branch, ok := gitErr.Context().GetString("branch")
	require.True(t, ok)
	require.Equal(t, "gh-pages", branch)

	authErr := AuthError("token rejected").Build()
	require.False(t, authErr.CanRetry())
}

func TestClassifiedError_UnwrapAndChain(t *testing.T) {
	root := stderrors.New("boom")
	classified := WrapError(root, CategoryFileSystem, "write page").Build()
	wrapped := fmt.Errorf("stage write: %w", classified)

	require.ErrorIs(t, wrapped, root)
	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	require.Equal(t, CategoryFileSystem, got.Category())
	require.True(t, HasCategory(wrapped, CategoryFileSystem))
	require.False(t, HasCategory(wrapped, CategoryGit))
	require.Equal(t, CategoryInternal, GetCategory(root))
	require.Contains(t, classified.Error(), "boom")
}

func TestHasCategory_JoinedErrors(t *testing.T) {
	cfgErr := ConfigError("mkdocs.yml already exists").Build()
	joined := stderrors.Join(fmt.Errorf("init: %w", cfgErr), stderrors.New("cleanup failed"))

	require.True(t, HasCategory(joined, CategoryConfig))
	require.False(t, HasCategory(joined, CategoryValidation))
	require.Equal(t, 7, NewCLIErrorAdapter(false, slog.Default()).ExitCodeFor(joined))

	nested := WrapError(GitError("push rejected").Build(), CategoryPublish, "publish").Build()
	require.True(t, HasCategory(nested, CategoryPublish))
	require.True(t, HasCategory(nested, CategoryGit))
	require.False(t, HasCategory(nil, CategoryGit))
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "strict validation failure", err: ValidationError("strict build failed").Build(), expected: 2},
		{name: "config error", err: ConfigError("site_name is required").Build(), expected: 7},
		{name: "git error", err: GitError("push failed").Build(), expected: 8},
		{name: "render error", err: RenderError("template failed").Build(), expected: 11},
		{name: "workflow error", err: WorkflowError("bad trigger").Build(), expected: 12},
		{name: "unclassified error", err: stderrors.New("unknown"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out bytes.Buffer
	var logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ValidationError("strict build failed").WithContext("errors", 2).Build())

	require.Equal(t, 2, code)
	require.Contains(t, out.String(), "strict build failed")
	require.Contains(t, logs.String(), "category=validation")
}

func TestCLIErrorAdapter_HidesInternalDetails(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)
	msg := adapter.FormatError(InternalError("nil page").Build())
	require.Equal(t, "Internal error occurred (use -v for details)", msg)

	verbose := NewCLIErrorAdapter(true, nil)
	require.Contains(t, verbose.FormatError(InternalError("nil page").Build()), "nil page")
}
