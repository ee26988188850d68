package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type fileStore struct {
	root string
}

// NewFileStore creates a Store backed by the filesystem. Keys map 1:1 to
// relative file paths under root.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

func (s *fileStore) List(ctx context.Context) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	return keys, nil
}

func (s *fileStore) Load(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	return string(data), nil
}

// Save writes to a temporary sibling file and renames it into place so a
// reader never observes a partially written document.
func (s *fileStore) Save(ctx context.Context, key, contents string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	path := s.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(contents); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}

	return nil
}

func (s *fileStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
