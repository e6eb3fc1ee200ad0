// Package filelist implements the FileListEntry type and its
// prefix-compressed, id-table-compressed wire codec (spec.md §4.3).
package filelist

import "time"

// Entry is the per-path record exchanged between generator, sender, and
// receiver (§3 "FileListEntry"). Path is kept as a raw byte sequence: it is
// never transcoded, since the wire protocol carries whatever bytes the
// source filesystem produced.
type Entry struct {
	Path []byte

	UID, GID uint32
	Mode     uint32
	Mtime    time.Time
	Atime    *time.Time
	Crtime   *time.Time

	// HardlinkID identifies entries that share an inode; zero means "not
	// hard-linked". The receiver's ledger resolves these at end of transfer.
	HardlinkID uint64

	Xattrs     []Xattr
	ACL        []byte
	DefaultACL []byte

	// IsDir and IsSymlink classify the entry for the walker/matcher; a
	// symlink's Mode still carries its permission bits but LinkTarget holds
	// the link text instead of file content.
	IsDir      bool
	IsSymlink  bool
	LinkTarget string
	// IsDevice/Rdev describe a device-special file (char or block).
	IsDevice bool
	Rdev     uint64
}

// Xattr is one extended-attribute name/value pair.
type Xattr struct {
	Name  string
	Value []byte
}
