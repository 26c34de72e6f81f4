package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// FS is the local-filesystem Target: the one concrete reference
// implementation exercising the Target interface end to end. Paths are
// forward-slash, relative to Root; WriteBinary/WriteText create parent
// directories implicitly.
type FS struct {
	Root string
}

// NewFS returns a Target rooted at root. root is created lazily on
// first write, not at construction.
func NewFS(root string) *FS {
	return &FS{Root: root}
}

func (f *FS) resolve(path string) string {
	clean := filepath.FromSlash(strings.TrimPrefix(path, "/"))

	return filepath.Join(f.Root, clean)
}

func (f *FS) WriteBinary(path string, data []byte) error {
	full := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errs.NewResourceError(path, "mkdir: "+err.Error())
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return errs.NewResourceError(path, "write: "+err.Error())
	}

	return nil
}

func (f *FS) WriteText(path string, text string) error {
	return f.WriteBinary(path, []byte(text))
}

func (f *FS) ReadBinary(path string) ([]byte, error) {
	data, err := os.ReadFile(f.resolve(path))
	if err != nil {
		return nil, errs.NewResourceError(path, "read: "+err.Error())
	}

	return data, nil
}

func (f *FS) ReadText(path string) (string, error) {
	data, err := f.ReadBinary(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (f *FS) Exists(path string) bool {
	_, err := os.Stat(f.resolve(path))

	return err == nil
}

// Finalize is a no-op for the local filesystem; every write already
// lands durably.
func (f *FS) Finalize() error { return nil }
