package sender

import (
	"os"
	"path/filepath"

	"github.com/oferchen/oc-rsync-sub001/internal/filelist"
	"github.com/oferchen/oc-rsync-sub001/internal/filter"
	"github.com/oferchen/oc-rsync-sub001/internal/xfs"
)

// buildFileList walks each of paths under root, applying matcher (if any),
// and returns the resulting entries in the order the walk visits them
// (spec.md §4.1 step 1). Symlinks are recorded as such rather than
// followed.
func buildFileList(root string, paths []string, matcher *filter.Matcher) ([]*filelist.Entry, error) {
	var entries []*filelist.Entry
	seen := make(map[string]bool)

	for _, p := range paths {
		base := filepath.Join(root, p)
		err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] {
				return nil
			}

			isDir := info.IsDir()
			if matcher != nil && rel != "." {
				decision, err := matcher.Match(rel, isDir)
				if err != nil {
					return err
				}
				if !decision.Include {
					if isDir {
						if !decision.Descend {
							return filepath.SkipDir
						}
						return nil
					}
					return nil
				}
			}

			ent, err := entryFromStat(root, rel, path, info)
			if err != nil {
				return err
			}
			seen[rel] = true
			entries = append(entries, ent)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func entryFromStat(root, rel, path string, info os.FileInfo) (*filelist.Entry, error) {
	st, err := xfs.Current().StatNofollow(path)
	if err != nil {
		return nil, err
	}

	ent := &filelist.Entry{
		Path:   []byte(rel),
		UID:    st.UID,
		GID:    st.GID,
		Mode:   st.Mode,
		Mtime:  st.Mtime,
		Atime:  st.Atime,
		Crtime: st.Crtime,
	}

	switch st.Type {
	case xfs.TypeDir:
		ent.IsDir = true
	case xfs.TypeSymlink:
		ent.IsSymlink = true
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		ent.LinkTarget = target
	case xfs.TypeDevice:
		ent.IsDevice = true
		ent.Rdev = st.Rdev
	}

	xattrs, err := xfs.Current().ReadXattrs(path)
	if err == nil {
		for _, x := range xattrs {
			ent.Xattrs = append(ent.Xattrs, filelist.Xattr{Name: x.Name, Value: x.Value})
		}
	}
	if acl, err := xfs.Current().ReadACL(path); err == nil {
		ent.ACL = acl
	}

	return ent, nil
}
