package receiver

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Root scopes filesystem operations under a destination directory. It
// stands in for os.Root (not yet available in the Go version this module
// targets); it does not itself provide openat-style escape protection, that
// job belongs to internal/restrict for the process as a whole.
type Root struct {
	base string
}

// OpenRoot returns a Root rooted at base.
func OpenRoot(base string) (*Root, error) {
	return &Root{base: base}, nil
}

func (r *Root) path(name string) string {
	return filepath.Join(r.base, name)
}

func (r *Root) Open(name string) (*os.File, error) {
	return os.Open(r.path(name))
}

func (r *Root) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(r.path(name))
}

func (r *Root) Close() error { return nil }
