//go:build linux

package maincmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncdconfig"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
)

// errIsParent is returned by namespace() to the parent process after it has
// re-executed itself in a new mount namespace and the child has taken over;
// callers should exit cleanly without doing further work.
var errIsParent = errors.New("namespace: re-exec handled by child")

const namespaceReexecEnv = "OC_RSYNC_NAMESPACED"

// namespace re-executes the current process inside a new mount namespace so
// that module directories can be bind-mounted read-only without touching the
// host filesystem's bind mounts. The parent waits for the child and returns
// errIsParent; the child returns nil and continues serving.
func namespace(osenv *rsyncos.Env, modules []rsyncdconfig.Module, listenAddr string) error {
	if os.Getenv(namespaceReexecEnv) == "1" {
		// Already namespaced (or re-exec is not possible, e.g. missing
		// CAP_SYS_ADMIN); fall through and serve directly.
		return nil
	}
	if syscall.Getuid() != 0 {
		osenv.Logf("not running as root, skipping mount namespace setup")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("namespace: %v", err)
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = osenv.Stderr
	cmd.Env = append(os.Environ(), namespaceReexecEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWNS,
	}
	if err := cmd.Start(); err != nil {
		osenv.Logf("namespace: re-exec failed (%v), continuing unnamespaced", err)
		return nil
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("namespaced child: %v", err)
	}
	return errIsParent
}
