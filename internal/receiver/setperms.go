package receiver

import (
	"path/filepath"

	"github.com/oferchen/oc-rsync-sub001/internal/xfs"
)

// setPerms restores the metadata the transfer is configured to preserve
// (spec.md §4.7 "Metadata application") once a file's content has landed.
func (rt *Transfer) setPerms(f *File) error {
	local := filepath.Join(rt.Dest, fileName(f))
	adapter := xfs.Current()

	if rt.Opts.PreserveUid || rt.Opts.PreserveGid {
		if err := rt.setUidGid(f, local, adapter); err != nil {
			return err
		}
	}

	if rt.Opts.PreservePerms {
		if err := adapter.ChmodNofollow(local, f.Mode&0o7777); err != nil {
			return err
		}
	}

	if rt.Opts.PreserveTimes {
		mtime := f.Mtime
		if err := adapter.SetTimes(local, f.Atime, &mtime); err != nil {
			return err
		}
	}

	if rt.Opts.PreserveXattrs {
		for _, x := range f.Xattrs {
			if err := adapter.WriteXattr(local, xfs.Xattr{Name: x.Name, Value: x.Value}); err != nil {
				return err
			}
		}
	}

	if rt.Opts.PreserveACLs && len(f.ACL) > 0 {
		if err := adapter.WriteACL(local, f.ACL); err != nil {
			return err
		}
	}

	return nil
}
