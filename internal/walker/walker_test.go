package walker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755))
	for _, f := range []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(f)), []byte("x"), 0o644))
	}

	files, err := Files(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}, files)
}

func TestFiles_SkipsNonRegular(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "link.txt")))

	files, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, files)
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		prefix string
		rel    string
		want   string
	}{
		{prefix: "", rel: "a.txt", want: "a.txt"},
		{prefix: "data", rel: "a.txt", want: "data/a.txt"},
		{prefix: "data/", rel: "sub/a.txt", want: "data/sub/a.txt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyFor(tt.prefix, tt.rel))
	}
}

func TestLocalPathFor(t *testing.T) {
	got, err := LocalPathFor("/dest", "data/", "data/sub/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/dest/sub/a.txt"), got)

	got, err = LocalPathFor("/dest", "data", "data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/dest/a.txt"), got)

	// a key equal to the prefix maps to its base name
	got, err = LocalPathFor("/dest", "data/a.txt", "data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/dest/a.txt"), got)
}

func TestLocalPathFor_RejectsEscape(t *testing.T) {
	_, err := LocalPathFor("/dest", "data/", "data/../../etc/passwd")
	assert.Error(t, err)
}

func TestEach(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	var mu sync.Mutex
	seen := map[string]bool{}
	err := Each(context.Background(), 2, items, func(_ context.Context, item string) error {
		mu.Lock()
		defer mu.Unlock()
		seen[item] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, len(items))
}

func TestEach_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := Each(context.Background(), 1, []string{"a", "b", "c"}, func(_ context.Context, item string) error {
		if item == "b" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
