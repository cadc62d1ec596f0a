package recordstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/storage"
)

// DefaultDir is where recordings live unless configured otherwise.
const DefaultDir = "data/http_records"

// Dir stores one file per key at <root>/<key>.bin.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root, creating the directory if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		root = DefaultDir
	}
	if _, err := storage.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	slog.Debug("record store directory ready", "dir", root)
	return &Dir{root: root}, nil
}

// Root returns the record directory.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the file that holds the record for key.
func (d *Dir) Path(key string) string {
	return filepath.Join(d.root, key+".bin")
}

// Get reads the record for key.
func (d *Dir) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	content, err := os.ReadFile(d.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read record %s: %w", key, err)
	}
	return content, true, nil
}

// Put writes the record for key. The write goes through a temp file and a
// rename, so concurrent processes see either the old file or the new one.
func (d *Dir) Put(_ context.Context, key string, content []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(d.Path(key), content); err != nil {
		return fmt.Errorf("write record %s: %w", key, err)
	}
	return nil
}
