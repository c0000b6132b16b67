package intake

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxSize is the largest file accepted before any network call (100 MiB)
const DefaultMaxSize int64 = 100 * 1024 * 1024

var (
	ErrInvalidFileType = errors.New("invalid file type: a .csv file is required")
	ErrFileTooLarge    = errors.New("file too large")
)

// File is a candidate CSV selected by the user
type File interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// Options controls the intake gates
type Options struct {
	MaxSize int64
	// CaseInsensitiveExt accepts ".CSV" and friends. Off by default: the
	// admin UI has always compared the suffix case-sensitively.
	CaseInsensitiveExt bool
}

// DefaultOptions returns the gates used by the admin wizard
func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize}
}

// Check applies the extension and size gates
func Check(f File, opts Options) error {
	name := f.Name()
	if opts.CaseInsensitiveExt {
		name = strings.ToLower(name)
	}
	if !strings.HasSuffix(name, ".csv") {
		return fmt.Errorf("%w: %s", ErrInvalidFileType, f.Name())
	}

	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if f.Size() > maxSize {
		return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrFileTooLarge, f.Name(), f.Size(), maxSize)
	}
	return nil
}

// LocalFile is a file on disk, optionally shown under a different name
type LocalFile struct {
	path string
	name string
	size int64
}

// Open stats path and returns it as a File named after its base name
func Open(path string) (*LocalFile, error) {
	return NewLocalFile(path, filepath.Base(path))
}

// NewLocalFile is used when the display name differs from the stored path,
// e.g. multipart uploads saved under a generated name.
func NewLocalFile(path, displayName string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &LocalFile{path: path, name: displayName, size: info.Size()}, nil
}

func (f *LocalFile) Name() string { return f.name }
func (f *LocalFile) Size() int64  { return f.size }
func (f *LocalFile) Path() string { return f.path }

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// FormatFileSize renders bytes the way the admin UI does ("1.5 MB")
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(sizes)-1 {
		value /= 1024
		i++
	}
	s := fmt.Sprintf("%.2f", value)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " " + sizes[i]
}
