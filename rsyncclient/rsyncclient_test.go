package rsyncclient_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncopts"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
	"github.com/oferchen/oc-rsync-sub001/rsyncclient"
	"github.com/oferchen/oc-rsync-sub001/rsyncd"
	"github.com/google/go-cmp/cmp"
)

type readWriter struct {
	io.Reader
	io.Writer
}

// parseServerArgs mirrors how internal/maincmd parses the remote
// `--server` invocation's own argv.
func parseServerArgs(t *testing.T, args []string) *rsyncopts.Context {
	t.Helper()
	osenv := &rsyncos.Env{Std: rsyncos.Std{Stderr: io.Discard}}
	pc, err := rsyncopts.ParseArguments(osenv, args)
	if err != nil {
		t.Fatalf("parsing server args: %v", err)
	}
	return pc
}

func TestClientServerModule(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dest := filepath.Join(tmp, "dest")
	const hello = "world"
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "hello"), []byte(hello), 0644); err != nil {
		t.Fatal(err)
	}

	mod := rsyncd.Module{
		Name: "tmp",
		Path: src,
	}
	srv, err := rsyncd.NewServer([]rsyncd.Module{mod}, rsyncd.WithStderr(os.Stderr))
	if err != nil {
		t.Fatal(err)
	}
	const negotiate = true
	stdinrd, stdinwr := io.Pipe()
	stdoutrd, stdoutwr := io.Pipe()
	conn := srv.NewConnection(stdinrd, stdoutwr)

	args := []string{"-av"}
	serverArgs := append([]string{"--server", "--sender"}, args...)
	serverArgs = append(serverArgs, ".", "./")
	pc := parseServerArgs(t, serverArgs)
	t.Logf("pc.RemainingArgs=%q", pc.RemainingArgs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.HandleConn(&mod, conn, pc.RemainingArgs[1:], pc.Options, negotiate); err != nil {
			t.Error(err)
		}
	}()

	rw := &readWriter{Reader: stdoutrd, Writer: stdinwr}
	client, err := rsyncclient.New(args)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Run(t.Context(), rw, []string{dest}); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte(hello)) {
		t.Errorf("hello: unexpected contents: diff (-want +got):\n%s", cmp.Diff([]byte(hello), got))
	}

	// Ensure an error would be displayed, if any.
	wg.Wait()
}

// like TestClientServerModule, but without a module, i.e. using the
// command calling convention.
func TestClientServerCommand(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src") + "/"
	dest := filepath.Join(tmp, "dest")
	const hello = "world"
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "hello"), []byte(hello), 0644); err != nil {
		t.Fatal(err)
	}

	srv, err := rsyncd.NewServer(nil, rsyncd.WithStderr(os.Stderr))
	if err != nil {
		t.Fatal(err)
	}
	const negotiate = true
	stdinrd, stdinwr := io.Pipe()
	stdoutrd, stdoutwr := io.Pipe()
	conn := srv.NewConnection(stdinrd, stdoutwr)

	args := []string{"-av"}
	serverArgs := append([]string{"--server", "--sender"}, args...)
	serverArgs = append(serverArgs, ".", src)
	pc := parseServerArgs(t, serverArgs)
	t.Logf("pc.RemainingArgs=%q", pc.RemainingArgs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.HandleConn(nil, conn, pc.RemainingArgs[1:], pc.Options, negotiate); err != nil {
			t.Error(err)
		}
	}()

	rw := &readWriter{Reader: stdoutrd, Writer: stdinwr}
	client, err := rsyncclient.New(args)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Run(t.Context(), rw, []string{dest}); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte(hello)) {
		t.Errorf("hello: unexpected contents: diff (-want +got):\n%s", cmp.Diff([]byte(hello), got))
	}

	// Ensure an error would be displayed, if any.
	wg.Wait()
}

// like TestClientServerCommand, but sending data instead of receiving.
func TestClientServerCommandSender(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src") + "/"
	dest := filepath.Join(tmp, "dest")
	const hello = "world"
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "hello"), []byte(hello), 0644); err != nil {
		t.Fatal(err)
	}

	srv, err := rsyncd.NewServer(nil, rsyncd.WithStderr(os.Stderr))
	if err != nil {
		t.Fatal(err)
	}
	const negotiate = true
	stdinrd, stdinwr := io.Pipe()
	stdoutrd, stdoutwr := io.Pipe()
	conn := srv.NewConnection(stdinrd, stdoutwr)

	args := []string{"-av"}
	serverArgs := append([]string{"--server"}, args...)
	serverArgs = append(serverArgs, ".", dest)
	pc := parseServerArgs(t, serverArgs)
	t.Logf("pc.RemainingArgs=%q", pc.RemainingArgs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.HandleConn(nil, conn, pc.RemainingArgs[1:], pc.Options, negotiate); err != nil {
			t.Error(err)
		}
	}()

	rw := &readWriter{Reader: stdoutrd, Writer: stdinwr}
	client, err := rsyncclient.New(args, rsyncclient.WithSender())
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Run(t.Context(), rw, []string{src}); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte(hello)) {
		t.Errorf("hello: unexpected contents: diff (-want +got):\n%s", cmp.Diff([]byte(hello), got))
	}

	// Ensure an error would be displayed, if any.
	wg.Wait()
}
