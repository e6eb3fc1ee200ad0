//go:build !linux

package xfs

import (
	"os"
	"time"
)

// portableAdapter is a minimal, stdlib-only adapter for platforms without
// golang.org/x/sys/unix's Linux-specific xattr/fallocate syscalls wired up
// here. It covers stat/chown/chmod/times; xattrs and ACLs are no-ops and
// PunchHole always reports unsupported, matching §4.7's "optional; no-op
// where unsupported" allowance for the operations this platform lacks.
type portableAdapter struct{}

var current Adapter = portableAdapter{}

func (portableAdapter) StatNofollow(path string) (*Stat, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	typ := TypeOther
	switch {
	case fi.Mode().IsRegular():
		typ = TypeRegular
	case fi.IsDir():
		typ = TypeDir
	case fi.Mode()&os.ModeSymlink != 0:
		typ = TypeSymlink
	}
	mtime := fi.ModTime()
	return &Stat{Mode: uint32(fi.Mode().Perm()), Mtime: mtime, Type: typ}, nil
}

func (portableAdapter) ChownNofollow(path string, uid, gid *uint32) error { return nil }

func (portableAdapter) ChmodNofollow(path string, mode uint32) error {
	return os.Chmod(path, os.FileMode(mode))
}

func (portableAdapter) SetTimes(path string, atime, mtime *time.Time) error {
	if mtime == nil {
		return nil
	}
	at := time.Now()
	if atime != nil {
		at = *atime
	}
	return os.Chtimes(path, at, *mtime)
}

func (portableAdapter) SetCrtime(path string, t time.Time) error { return nil }

func (portableAdapter) ReadXattrs(path string) ([]Xattr, error) { return nil, nil }
func (portableAdapter) WriteXattr(path string, x Xattr) error   { return nil }
func (portableAdapter) RemoveXattr(path, name string) error     { return nil }

func (portableAdapter) ReadACL(path string) ([]byte, error)     { return nil, nil }
func (portableAdapter) WriteACL(path string, acl []byte) error  { return nil }
func (portableAdapter) RemoveDefaultACL(path string) error      { return nil }

func (portableAdapter) PunchHole(fd uintptr, offset, length int64) error {
	return ErrPunchHoleUnsupported
}
