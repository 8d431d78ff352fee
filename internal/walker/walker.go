// Package walker maps local directory trees onto key prefixes and fans
// per-file work out across a bounded worker group. It carries the path
// bookkeeping for directory transfers; the transfers themselves are supplied
// as callbacks.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Files returns the slash-separated relative paths of all regular files
// under dir, in walk order. Symlinks and other non-regular entries are
// skipped.
func Files(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

// KeyFor joins a key prefix and a relative file path into an object key.
func KeyFor(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return strings.TrimSuffix(prefix, "/") + "/" + rel
}

// LocalPathFor maps an object key under a prefix to a path under destDir.
// Keys that would escape destDir are rejected.
func LocalPathFor(destDir, prefix, key string) (string, error) {
	rel := strings.TrimPrefix(key, prefix)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		rel = path.Base(key)
	}

	local := filepath.Join(destDir, filepath.FromSlash(rel))
	cleanDest := filepath.Clean(destDir)
	if local != cleanDest && !strings.HasPrefix(local, cleanDest+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes destination directory %q", key, destDir)
	}
	return local, nil
}

// Each runs fn over every item with at most limit goroutines, stopping at
// the first error.
func Each(ctx context.Context, limit int, items []string, fn func(context.Context, string) error) error {
	if limit <= 0 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(ctx, item)
		})
	}
	return g.Wait()
}
