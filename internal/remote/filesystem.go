package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"radius-go/internal/radius"
)

const leafExt = ".json"

// FileSystemStore is a filesystem-based implementation of the radius.RemoteStore
// interface, meant for a directory shared between devices (a synced folder or
// network mount). Each leaf path is one file holding its JSON value:
//
//	<root>/
//	  users/<uid>/venues/<venueId>/
//	    visited.json
//	    lastUpdated.json
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a filesystem store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create remote root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("remote root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("remote root is not a directory: %s", root)
	}

	return &FileSystemStore{root: root}, nil
}

// ReadSnapshot walks the directory for path and assembles its children.
// A missing directory is an empty snapshot.
func (s *FileSystemStore) ReadSnapshot(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	p, err := s.checkPath(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, filepath.FromSlash(p))
	leaves := make(map[string][]byte)
	err = filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), leafExt) {
			return nil
		}

		rel, err := filepath.Rel(s.root, name)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		leaves[strings.TrimSuffix(filepath.ToSlash(rel), leafExt)] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", p, err)
	}

	return AssembleChildren(p, leaves), nil
}

// Write stores the JSON encoding of value at path, replacing the file atomically.
func (s *FileSystemStore) Write(ctx context.Context, path string, value any) error {
	p, err := s.checkPath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", p, err)
	}

	destPath := filepath.Join(s.root, filepath.FromSlash(p)+leafExt)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	return writeFileAtomic(destPath, data)
}

// Close is a no-op for the filesystem store.
func (s *FileSystemStore) Close() error {
	return nil
}

// checkPath cleans path and rejects segments that would leave the root.
func (s *FileSystemStore) checkPath(path string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." || strings.ContainsRune(seg, os.PathSeparator) {
			return "", fmt.Errorf("invalid remote path %q: segment %q", path, seg)
		}
	}
	return p, nil
}

// writeFileAtomic writes data to destPath using a temp file and rename.
func writeFileAtomic(destPath string, data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements radius.RemoteStore interface
var _ radius.RemoteStore = (*FileSystemStore)(nil)
