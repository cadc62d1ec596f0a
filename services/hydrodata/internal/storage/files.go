// Package storage writes downloaded payloads to disk.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureDir creates path and its parents if missing and returns it.
func EnsureDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFileAtomic writes content next to path under a unique temporary name
// and renames it into place.
func WriteFileAtomic(path string, content []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// SaveBytes writes content to targetDir/filename and returns the file path.
// An existing file is left untouched unless overwrite is set.
func SaveBytes(content []byte, targetDir, filename string, overwrite bool) (string, error) {
	dir, err := EnsureDir(targetDir)
	if err != nil {
		return "", fmt.Errorf("create target dir: %w", err)
	}
	path := filepath.Join(dir, filename)

	if !overwrite {
		_, err := os.Stat(path)
		if err == nil {
			slog.Info("file already exists, not overwriting", "path", path)
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := WriteFileAtomic(path, content); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("file saved", "path", path, "bytes", len(content))
	return path, nil
}
