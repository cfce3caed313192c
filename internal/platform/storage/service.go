package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

// FileStore reads and rewrites image files on the local filesystem
type FileStore struct {
	atomic bool
}

// NewFileStore creates a file store. With atomic set, writes go to a temporary
// file in the same directory which is then renamed over the target.
func NewFileStore(atomic bool) *FileStore {
	return &FileStore{atomic: atomic}
}

// FileInfo describes a stored file
type FileInfo struct {
	Path    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
}

// Read returns the whole file
func (s *FileStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Write replaces the file contents, keeping the existing permission bits
func (s *FileStore) Write(ctx context.Context, path string, data []byte) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("refusing to write empty image data")
	}

	perm := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}

	if s.atomic {
		if err := atomicwriter.WriteFile(path, data, perm); err != nil {
			return fmt.Errorf("failed to write file atomically: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Stat describes the file
func (s *FileStore) Stat(ctx context.Context, path string) (*FileInfo, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileInfo{Path: path, Size: fi.Size(), Mode: fi.Mode(), ModTime: fi.ModTime()}, nil
}

// validatePath rejects paths no filesystem call should see
func validatePath(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if strings.Contains(path, "\x00") {
		return errors.New("null bytes not allowed in path")
	}
	return nil
}

var magicNumbers = []struct {
	format picture.Format
	prefix []byte
}{
	{picture.FormatJPEG, []byte{0xFF, 0xD8, 0xFF}},
	{picture.FormatPNG, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{picture.FormatGIF, []byte("GIF87a")},
	{picture.FormatGIF, []byte("GIF89a")},
	{picture.FormatBMP, []byte("BM")},
	{picture.FormatTIFF, []byte("II*\x00")},
	{picture.FormatTIFF, []byte("MM\x00*")},
	{picture.FormatICO, []byte{0x00, 0x00, 0x01, 0x00}},
}

// DetectFormat identifies the container from its leading bytes
func DetectFormat(header []byte) (picture.Format, bool) {
	// RIFF is shared with other media; WEBP is confirmed at offset 8
	if len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && string(header[8:12]) == "WEBP" {
		return picture.FormatWEBP, true
	}
	for _, m := range magicNumbers {
		if bytes.HasPrefix(header, m.prefix) {
			return m.format, true
		}
	}
	return "", false
}
