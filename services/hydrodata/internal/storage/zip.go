package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrBadArchive marks payloads that cannot be read or safely expanded as zip.
var ErrBadArchive = errors.New("bad zip archive")

// ZipOptions controls what SaveZip does after writing the archive.
type ZipOptions struct {
	Extract bool
	// ExtractDir defaults to the archive's own directory.
	ExtractDir string
}

// SaveZip stores a zip payload, always replacing an existing archive with the
// same name, and optionally expands it.
func SaveZip(content []byte, targetDir, filename string, opts ZipOptions) (string, error) {
	if filename == "" {
		filename = "download.zip"
	}

	zipPath, err := SaveBytes(content, targetDir, filename, true)
	if err != nil {
		return "", err
	}

	if opts.Extract {
		dest := opts.ExtractDir
		if dest == "" {
			dest = targetDir
		}
		if err := ExtractZip(zipPath, dest); err != nil {
			return "", err
		}
	}

	return zipPath, nil
}

// ExtractZip expands every entry of the archive at zipPath into destDir.
// Entries are validated before anything is written; a failure half way
// through copying may still leave earlier entries on disk.
func ExtractZip(zipPath, destDir string) error {
	dest, err := EnsureDir(destDir)
	if err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}

	slog.Info("extracting archive", "archive", zipPath, "dest", dest)

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadArchive, zipPath, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: entry %q escapes %s", ErrBadArchive, f.Name, dest)
		}
		targets[i] = target
	}

	for i, f := range zr.File {
		if err := extractEntry(f, targets[i]); err != nil {
			return err
		}
	}

	slog.Debug("archive extracted", "archive", zipPath, "entries", len(zr.File))
	return nil
}

func extractEntry(f *zip.File, target string) error {
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrBadArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: read %s: %v", ErrBadArchive, f.Name, err)
	}
	return out.Close()
}
