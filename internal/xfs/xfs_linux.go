//go:build linux

package xfs

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type linuxAdapter struct{}

var current Adapter = linuxAdapter{}

func (linuxAdapter) StatNofollow(path string) (*Stat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, fmt.Errorf("xfs: lstat %s: %w", path, err)
	}
	typ := TypeOther
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		typ = TypeRegular
	case unix.S_IFDIR:
		typ = TypeDir
	case unix.S_IFLNK:
		typ = TypeSymlink
	case unix.S_IFCHR, unix.S_IFBLK:
		typ = TypeDevice
	}
	atime := time.Unix(st.Atim.Sec, st.Atim.Nsec)
	return &Stat{
		UID:   st.Uid,
		GID:   st.Gid,
		Mode:  st.Mode,
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Atime: &atime,
		Type:  typ,
		Rdev:  st.Rdev,
	}, nil
}

func (linuxAdapter) ChownNofollow(path string, uid, gid *uint32) error {
	u, g := -1, -1
	if uid != nil {
		u = int(*uid)
	}
	if gid != nil {
		g = int(*gid)
	}
	if err := unix.Lchown(path, u, g); err != nil {
		if isSwallowable(err) {
			return nil
		}
		return fmt.Errorf("xfs: lchown %s: %w", path, err)
	}
	return nil
}

func (linuxAdapter) ChmodNofollow(path string, mode uint32) error {
	// Linux has no fchmodat AT_SYMLINK_NOFOLLOW for regular chmod; symlink
	// permissions are not meaningful on Linux, so chmod is skipped for
	// symlinks by the caller (which already has the Stat.Type) and applied
	// directly here otherwise.
	if err := unix.Chmod(path, mode); err != nil {
		if isSwallowable(err) {
			return nil
		}
		return fmt.Errorf("xfs: chmod %s: %w", path, err)
	}
	return nil
}

func (linuxAdapter) SetTimes(path string, atime, mtime *time.Time) error {
	var ts [2]unix.Timespec
	ts[0] = toTimespec(atime)
	ts[1] = toTimespec(mtime)
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts[:], unix.AT_SYMLINK_NOFOLLOW); err != nil {
		if isSwallowable(err) {
			return nil
		}
		return fmt.Errorf("xfs: utimes %s: %w", path, err)
	}
	return nil
}

func toTimespec(t *time.Time) unix.Timespec {
	if t == nil {
		return unix.Timespec{Nsec: unix.UTIME_OMIT}
	}
	return unix.NsecToTimespec(t.UnixNano())
}

func (linuxAdapter) SetCrtime(path string, t time.Time) error {
	return nil // birth time is not settable on Linux
}

func (linuxAdapter) ReadXattrs(path string) ([]Xattr, error) {
	sizeBuf := make([]byte, 4096)
	n, err := unix.Llistxattr(path, sizeBuf)
	if err != nil {
		if isSwallowable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("xfs: listxattr %s: %w", path, err)
	}
	names := splitNulTerminated(sizeBuf[:n])
	out := make([]Xattr, 0, len(names))
	for _, name := range names {
		valBuf := make([]byte, 4096)
		vn, err := unix.Lgetxattr(path, name, valBuf)
		if err != nil {
			continue
		}
		out = append(out, Xattr{Name: name, Value: append([]byte(nil), valBuf[:vn]...)})
	}
	return out, nil
}

func (linuxAdapter) WriteXattr(path string, x Xattr) error {
	if err := unix.Lsetxattr(path, x.Name, x.Value, 0); err != nil {
		if isSwallowable(err) {
			return nil
		}
		return fmt.Errorf("xfs: setxattr %s %s: %w", path, x.Name, err)
	}
	return nil
}

func (linuxAdapter) RemoveXattr(path, name string) error {
	if err := unix.Lremovexattr(path, name); err != nil {
		if isSwallowable(err) {
			return nil
		}
		return fmt.Errorf("xfs: removexattr %s %s: %w", path, name, err)
	}
	return nil
}

// ReadACL/WriteACL/RemoveDefaultACL round-trip the POSIX ACL as the raw
// xattr blob rsync itself treats it as (system.posix_acl_access), leaving
// parsing of the ACL entry structure to the caller that needs it.
const (
	aclAccessXattr  = "system.posix_acl_access"
	aclDefaultXattr = "system.posix_acl_default"
)

func (a linuxAdapter) ReadACL(path string) ([]byte, error) {
	return readXattrRaw(path, aclAccessXattr)
}

func (a linuxAdapter) WriteACL(path string, acl []byte) error {
	if len(acl) == 0 {
		return nil
	}
	return a.WriteXattr(path, Xattr{Name: aclAccessXattr, Value: acl})
}

func (a linuxAdapter) RemoveDefaultACL(path string) error {
	return a.RemoveXattr(path, aclDefaultXattr)
}

func readXattrRaw(path, name string) ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := unix.Lgetxattr(path, name, buf)
	if err != nil {
		if isSwallowable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("xfs: getxattr %s %s: %w", path, name, err)
	}
	return append([]byte(nil), buf[:n]...), nil
}

func (linuxAdapter) PunchHole(fd uintptr, offset, length int64) error {
	const flags = unix.FALLOC_FL_PUNCH_HOLE | unix.FALLOC_FL_KEEP_SIZE
	if err := unix.Fallocate(int(fd), flags, offset, length); err != nil {
		if err == unix.EOPNOTSUPP {
			return ErrPunchHoleUnsupported
		}
		return fmt.Errorf("xfs: fallocate punch-hole: %w", err)
	}
	return nil
}

// isSwallowable reports the errno policy of §4.7: EPERM/EACCES/ENOSYS are
// swallowed (best-effort) rather than failing the transfer.
func isSwallowable(err error) bool {
	switch err {
	case unix.EPERM, unix.EACCES, unix.ENOSYS, unix.ENOTSUP:
		return true
	default:
		return false
	}
}

func splitNulTerminated(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			if i > start {
				out = append(out, string(b[start:i]))
			}
			start = i + 1
		}
	}
	return out
}
