package lake

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestStaging_CommitMovesAll(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")

	var st Staging
	defer st.Discard()
	require.NoError(t, st.Add(a, writeString("new a")))
	require.NoError(t, st.Add(b, writeString("new b")))
	assert.NoFileExists(t, a, "nothing visible before commit")

	require.NoError(t, st.Commit())
	assert.Equal(t, "new a", readFile(t, a))
	assert.Equal(t, "new b", readFile(t, b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStaging_FailedAddKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("old a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("old b"), 0o644))

	var st Staging
	require.NoError(t, st.Add(a, writeString("new a")))
	err := st.Add(b, func(io.Writer) error { return errors.New("encode failed") })
	require.Error(t, err)
	st.Discard()

	assert.Equal(t, "old a", readFile(t, a))
	assert.Equal(t, "old b", readFile(t, b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files are removed")
}

func TestStaging_CommitRenameFailure(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))

	var st Staging
	require.NoError(t, st.Add(blocked, writeString("x")))
	err := st.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lake: rename into blocked")
	st.Discard()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEncodeJSON(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, EncodeJSON(&sb, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", sb.String())
}
