package maincmd

import (
	"fmt"
	"os"
	"path/filepath"
)

// canUnexpectedlyWriteTo verifies that a module declared read-only is not
// actually writable by this process, catching misconfiguration (e.g. a
// module path the daemon's uid owns) before the namespace/landlock
// restriction would have caught it at a more confusing point.
func canUnexpectedlyWriteTo(path string) error {
	probe := filepath.Join(path, ".oc-rsync-writecheck")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsPermission(err) || os.IsNotExist(err) {
			return nil
		}
		if os.IsExist(err) {
			return fmt.Errorf("module path %s: stale write-check probe %s already exists", path, probe)
		}
		return nil
	}
	f.Close()
	os.Remove(probe)
	return fmt.Errorf("module path %s is configured read-only but is writable by this process", path)
}
