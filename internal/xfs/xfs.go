// Package xfs is the abstract metadata-application platform adapter of
// spec.md §4.7: stat/chown/chmod/time/xattr/ACL operations that the core
// engine needs without caring which OS it runs on.
package xfs

import "time"

// Type classifies a filesystem entry as reported by stat_nofollow.
type Type int

const (
	TypeRegular Type = iota
	TypeDir
	TypeSymlink
	TypeDevice
	TypeOther
)

// Stat is the contract of `stat_nofollow(path)`.
type Stat struct {
	UID, GID uint32
	Mode     uint32
	Mtime    time.Time
	Atime    *time.Time
	Crtime   *time.Time
	Type     Type
	Rdev     uint64
}

// Xattr is one extended attribute name/value pair.
type Xattr struct {
	Name  string
	Value []byte
}

// Adapter is implemented per-OS (xfs_linux.go et al.).
type Adapter interface {
	StatNofollow(path string) (*Stat, error)
	ChownNofollow(path string, uid, gid *uint32) error
	ChmodNofollow(path string, mode uint32) error
	SetTimes(path string, atime, mtime *time.Time) error
	SetCrtime(path string, t time.Time) error

	ReadXattrs(path string) ([]Xattr, error)
	WriteXattr(path string, x Xattr) error
	RemoveXattr(path, name string) error

	ReadACL(path string) ([]byte, error)
	WriteACL(path string, acl []byte) error
	RemoveDefaultACL(path string) error

	// PunchHole punches a hole of length bytes at offset in the file
	// backing fd, for sparse apply (§4.4 "Sparse"). Returns
	// ErrPunchHoleUnsupported when the platform offers no such call; the
	// caller falls back to seek + later Truncate.
	PunchHole(fd uintptr, offset, length int64) error
}

// ErrPunchHoleUnsupported is returned by PunchHole on platforms/filesystems
// without a hole-punching syscall.
var ErrPunchHoleUnsupported = errUnsupported{"punch-hole not supported on this platform"}

type errUnsupported struct{ msg string }

func (e errUnsupported) Error() string { return e.msg }

// Current returns the Adapter for the running OS.
func Current() Adapter { return current }
