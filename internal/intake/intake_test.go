package intake

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeFile struct {
	name string
	size int64
}

func (f fakeFile) Name() string                 { return f.name }
func (f fakeFile) Size() int64                  { return f.size }
func (f fakeFile) Open() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil }

func TestCheck(t *testing.T) {
	const mb = 1024 * 1024
	tests := []struct {
		name     string
		file     fakeFile
		opts     Options
		expected error
	}{
		{"valid csv", fakeFile{"clientes.csv", 10 * mb}, DefaultOptions(), nil},
		{"exactly at limit", fakeFile{"clientes.csv", DefaultMaxSize}, DefaultOptions(), nil},
		{"over limit", fakeFile{"clientes.csv", DefaultMaxSize + 1}, DefaultOptions(), ErrFileTooLarge},
		{"xlsx", fakeFile{"clientes.xlsx", mb}, DefaultOptions(), ErrInvalidFileType},
		{"no extension", fakeFile{"clientes", mb}, DefaultOptions(), ErrInvalidFileType},
		{"csv in middle", fakeFile{"clientes.csv.bak", mb}, DefaultOptions(), ErrInvalidFileType},
		{"uppercase extension rejected by default", fakeFile{"DATA.CSV", 50 * mb}, DefaultOptions(), ErrInvalidFileType},
		{"uppercase extension opt-in", fakeFile{"DATA.CSV", 50 * mb}, Options{CaseInsensitiveExt: true}, nil},
		{"zero max size uses default", fakeFile{"a.csv", DefaultMaxSize + 1}, Options{}, ErrFileTooLarge},
		{"extension checked before size", fakeFile{"big.txt", DefaultMaxSize + 1}, DefaultOptions(), ErrInvalidFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.file, tt.opts)
			if tt.expected == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestNewLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload-123")
	if err := os.WriteFile(path, []byte("NIF;Nombre\n1;A\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewLocalFile(path, "clientes.csv")
	if err != nil {
		t.Fatalf("NewLocalFile failed: %v", err)
	}
	if f.Name() != "clientes.csv" {
		t.Errorf("Expected display name, got %s", f.Name())
	}
	if f.Size() != 15 {
		t.Errorf("Expected size 15, got %d", f.Size())
	}

	rc, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !strings.HasPrefix(string(data), "NIF;") {
		t.Errorf("Unexpected content %q", data)
	}

	if _, err := Open(dir); err == nil {
		t.Error("Expected error for directory")
	}
	if _, err := Open(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{100 * 1024 * 1024, "100 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.bytes); got != tt.expected {
			t.Errorf("FormatFileSize(%d): expected %s, got %s", tt.bytes, tt.expected, got)
		}
	}
}
