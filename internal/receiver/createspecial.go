package receiver

import (
	"os"
	"path/filepath"
)

// createSpecialFiles materializes the entries that carry no delta content
// of their own — directories and symlinks — before the generator/receiver
// exchange runs over the remaining regular files (spec.md §4.1 step 1,
// §4.7). Device-node entries are skipped and not created.
func (rt *Transfer) createSpecialFiles(fileList []*File) error {
	if rt.Opts.DryRun {
		return nil
	}
	for _, f := range fileList {
		local := filepath.Join(rt.Dest, fileName(f))
		switch {
		case f.IsDir:
			if err := os.MkdirAll(local, 0o755); err != nil {
				return err
			}
		case f.IsSymlink:
			if !rt.Opts.PreserveLinks {
				continue
			}
			os.Remove(local)
			if err := symlink(f.LinkTarget, local); err != nil {
				return err
			}
		case f.IsDevice:
			if !(rt.Opts.PreserveDevices || rt.Opts.PreserveSpecials) {
				continue
			}
			// Device-node creation requires mknod, a privileged syscall this
			// implementation does not invoke automatically; skip silently,
			// matching a non-root rsync run.
			continue
		default:
			continue
		}
		if err := rt.setPerms(f); err != nil {
			return err
		}
	}
	return nil
}
