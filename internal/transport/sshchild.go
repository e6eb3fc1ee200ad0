package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/shlex"
)

// StderrCapBytes bounds the stderr-drain buffer of §4.8 "SSH-child
// transport": 32 KiB, after which older bytes are discarded.
const StderrCapBytes = 32 * 1024

// SSHChild launches a remote-shell command (ssh, or whatever `--rsh`/
// RSYNC_RSH/default "ssh" resolves to) and exposes its stdin/stdout as the
// byte-pipe transport, draining stderr into a bounded capture the way the
// teacher's `doCmd` does in clientmaincmd.go.
type SSHChild struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	mu       sync.Mutex
	stderr   bytes.Buffer
	closeErr error
	closed   bool
}

// StartSSHChild parses rshCommand (shell-style, e.g. `ssh -p 2222`) with
// google/shlex the way the teacher splits `--rsh`/RSYNC_RSH, appends host
// and the remote command argv, and starts the child.
func StartSSHChild(ctx context.Context, rshCommand string, host string, remoteArgv []string) (*SSHChild, error) {
	if rshCommand == "" {
		rshCommand = "ssh"
	}
	parts, err := shlex.Split(rshCommand)
	if err != nil {
		return nil, fmt.Errorf("transport: parsing rsh command %q: %w", rshCommand, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("transport: empty rsh command")
	}
	argv := append(append([]string{}, parts[1:]...), host)
	argv = append(argv, remoteArgv...)

	cmd := exec.CommandContext(ctx, parts[0], argv...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	sc := &SSHChild{cmd: cmd, stdin: stdin, stdout: stdout}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go sc.drainStderr(stderr)
	return sc, nil
}

func (sc *SSHChild) drainStderr(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sc.mu.Lock()
			sc.stderr.Write(buf[:n])
			if excess := sc.stderr.Len() - StderrCapBytes; excess > 0 {
				sc.stderr.Next(excess)
			}
			sc.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Stderr returns the bytes captured from the child's stderr so far, for the
// final error-reporting path.
func (sc *SSHChild) Stderr() []byte {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]byte(nil), sc.stderr.Bytes()...)
}

func (sc *SSHChild) Read(p []byte) (int, error)  { return sc.stdout.Read(p) }
func (sc *SSHChild) Write(p []byte) (int, error) { return sc.stdin.Write(p) }

// Close shuts down the child's stdin/stdout and waits for it to exit. The
// underlying pipes and the readWriter adapter share a single SSHChild, so
// this is safe to call more than once; only the first call actually closes
// and waits.
func (sc *SSHChild) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return sc.closeErr
	}
	sc.closed = true
	sc.stdin.Close()
	sc.stdout.Close()
	sc.closeErr = sc.cmd.Wait()
	return sc.closeErr
}

// DefaultRSH resolves the remote-shell command per §6.6: RSYNC_RSH, else
// RSH, else "ssh".
func DefaultRSH() string {
	if v := os.Getenv("RSYNC_RSH"); v != "" {
		return v
	}
	if v := os.Getenv("RSH"); v != "" {
		return v
	}
	return "ssh"
}
