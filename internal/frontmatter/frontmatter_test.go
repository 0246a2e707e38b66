package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, err := Split([]byte("---\ntitle: Porting\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Porting\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_CRLF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\r\ntitle: x\r\n---\r\nbody\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: x\r\n"), fm)
	require.Equal(t, []byte("body\r\n"), body)
}

func TestSplit_EmptyFrontmatterAndEOFDelimiter(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\nbody"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("body"), body)

	fm, body, had, err = Split([]byte("---\ntitle: x\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: x\n"), fm)
	require.Empty(t, body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestDecode_KnownFields(t *testing.T) {
	meta, err := Decode([]byte("title: Installing\ndescription: How to install\nhide:\n  - toc\nweight: 3\n"))
	require.NoError(t, err)
	require.Equal(t, "Installing", meta.Title)
	require.Equal(t, "How to install", meta.Description)
	require.True(t, meta.Hidden("toc"))
	require.False(t, meta.Hidden("navigation"))
	require.Equal(t, 3, meta.Fields["weight"])
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("title: [unterminated\n"))
	require.Error(t, err)

	_, err = Decode([]byte("just a string\n"))
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	meta, body, err := Parse([]byte("---\ntitle: FAQ\n---\n# FAQ\n"))
	require.NoError(t, err)
	require.Equal(t, "FAQ", meta.Title)
	require.Equal(t, []byte("# FAQ\n"), body)
}
