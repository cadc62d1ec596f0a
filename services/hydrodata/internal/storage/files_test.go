package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestSaveBytesIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")

	first, err := SaveBytes([]byte("first"), dir, "a.zip", false)
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}
	second, err := SaveBytes([]byte("second"), dir, "a.zip", false)
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected same path, got %s and %s", first, second)
	}
	content, _ := os.ReadFile(first)
	if string(content) != "first" {
		t.Errorf("Expected original bytes to be kept, got %q", content)
	}
}

func TestSaveBytesOverwrite(t *testing.T) {
	dir := t.TempDir()

	if _, err := SaveBytes([]byte("first"), dir, "a.zip", false); err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}
	path, err := SaveBytes([]byte("second"), dir, "a.zip", true)
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "second" {
		t.Errorf("Expected bytes to be replaced, got %q", content)
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestSaveZipExtract(t *testing.T) {
	dir := t.TempDir()
	extractDir := filepath.Join(dir, "out")
	payload := buildZip(t, map[string]string{
		"111.csv":        "station;111",
		"nested/222.csv": "station;222",
	})

	path, err := SaveZip(payload, dir, "ana_111;222.zip", ZipOptions{Extract: true, ExtractDir: extractDir})
	if err != nil {
		t.Fatalf("SaveZip failed: %v", err)
	}
	if filepath.Base(path) != "ana_111;222.zip" {
		t.Errorf("Unexpected archive path %s", path)
	}

	tests := map[string]string{
		"111.csv":        "station;111",
		"nested/222.csv": "station;222",
	}
	for name, want := range tests {
		got, err := os.ReadFile(filepath.Join(extractDir, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("Expected %s to be extracted: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s: expected %q, got %q", name, want, got)
		}
	}
}

func TestSaveZipExtractDefaultsToTargetDir(t *testing.T) {
	dir := t.TempDir()
	payload := buildZip(t, map[string]string{"data.txt": "ok"})

	if _, err := SaveZip(payload, dir, "", ZipOptions{Extract: true}); err != nil {
		t.Fatalf("SaveZip failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "download.zip")); err != nil {
		t.Errorf("Expected default archive name: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data.txt")); err != nil {
		t.Errorf("Expected entry in target dir: %v", err)
	}
}

func TestSaveZipMalformed(t *testing.T) {
	dir := t.TempDir()

	_, err := SaveZip([]byte("not a zip"), dir, "bad.zip", ZipOptions{Extract: true})
	if !errors.Is(err, ErrBadArchive) {
		t.Fatalf("Expected ErrBadArchive, got %v", err)
	}

	// Without extraction the bytes are stored as-is.
	if _, err := SaveZip([]byte("not a zip"), dir, "raw.zip", ZipOptions{}); err != nil {
		t.Errorf("SaveZip without extract should not inspect content: %v", err)
	}
}

func TestExtractZipRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	payload := buildZip(t, map[string]string{"../evil.txt": "x"})
	zipPath := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(zipPath, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	err := ExtractZip(zipPath, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrBadArchive) {
		t.Fatalf("Expected ErrBadArchive, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); err == nil {
		t.Error("Escaping entry must not be written")
	}
}
