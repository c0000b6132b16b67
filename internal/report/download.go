package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Downloader receives client-generated artifacts (the browser download)
type Downloader interface {
	Download(name, contentType string, data []byte) error
}

// DirDownloader saves artifacts into a local directory
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(name, contentType string, data []byte) error {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	slog.Info("Saved download", "path", path, "content_type", contentType, "bytes", len(data))
	return nil
}
