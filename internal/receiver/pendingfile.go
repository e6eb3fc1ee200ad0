package receiver

import (
	"github.com/google/renameio/v2"
)

// pendingFile is a temp file in the destination directory that becomes the
// real file only once its content has been fully written; no whole-file
// checksum is checked before the rename (spec.md §4.6 "Apply"). A crash or
// killed transfer never leaves a
// half-written file at the real path.
type pendingFile struct {
	t *renameio.PendingFile
}

func newPendingFile(path string) (*pendingFile, error) {
	t, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions())
	if err != nil {
		return nil, err
	}
	return &pendingFile{t: t}, nil
}

func (p *pendingFile) Write(b []byte) (int, error) { return p.t.Write(b) }

func (p *pendingFile) WriteAt(b []byte, off int64) (int, error) { return p.t.WriteAt(b, off) }

func (p *pendingFile) Truncate(size int64) error { return p.t.Truncate(size) }

func (p *pendingFile) Seek(offset int64, whence int) (int64, error) {
	return p.t.Seek(offset, whence)
}

func (p *pendingFile) Fd() uintptr { return p.t.Fd() }

func (p *pendingFile) CloseAtomicallyReplace() error { return p.t.CloseAtomicallyReplace() }

func (p *pendingFile) Cleanup() error { return p.t.Cleanup() }
