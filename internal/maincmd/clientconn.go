package maincmd

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/oferchen/oc-rsync-sub001"
	"github.com/oferchen/oc-rsync-sub001/internal/daemonauth"
	"github.com/oferchen/oc-rsync-sub001/internal/log"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncopts"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncstats"
	"github.com/oferchen/oc-rsync-sub001/internal/transport"
)

const defaultRsyncdPort = 873

// checkForHostspec recognizes the three ways rsync source/dest arguments
// name a remote: "rsync://host[:port]/path", "host::path" (both daemon
// connections) and "host:path" (remote shell). A non-nil err means arg names
// a local path instead.
func checkForHostspec(arg string) (host, path string, port int, err error) {
	if rest, ok := strings.CutPrefix(arg, "rsync://"); ok {
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return "", "", 0, fmt.Errorf("malformed rsync:// URL: %q", arg)
		}
		hostport, path := rest[:slash], rest[slash+1:]
		host, portStr, found := strings.Cut(hostport, ":")
		port = defaultRsyncdPort
		if found {
			n, perr := strconv.Atoi(portStr)
			if perr != nil {
				return "", "", 0, fmt.Errorf("malformed rsync:// URL: %q", arg)
			}
			port = n
		} else {
			host = hostport
		}
		return host, path, port, nil
	}

	if idx := strings.Index(arg, "::"); idx >= 0 {
		return arg[:idx], arg[idx+2:], defaultRsyncdPort, nil
	}

	if idx := strings.IndexByte(arg, ':'); idx >= 0 {
		if slash := strings.IndexByte(arg, '/'); slash < 0 || slash > idx {
			// "host:path", remote shell, not a daemon connection.
			return arg[:idx], arg[idx+1:], 0, nil
		}
	}

	return "", "", 0, fmt.Errorf("not a host-spec: %q", arg)
}

// serverOptions reconstructs the flags needed to make a remote `rsync
// --server` process behave like this invocation. Unlike upstream rsync, we
// emit each option as its own argument (short options unbundled, plus
// --specials/--delete/--sender in long form) rather than a bundled
// short-option string; the popt tables in internal/rsyncopts accept both.
func serverOptions(opts *rsyncopts.Options) []string {
	args := []string{"--server"}
	if opts.Sender() {
		args = append(args, "--sender")
	}
	if opts.Verbose() {
		args = append(args, "-v")
	}
	if opts.Recurse() {
		args = append(args, "-r")
	}
	if opts.PreserveLinks() {
		args = append(args, "-l")
	}
	if opts.PreservePerms() {
		args = append(args, "-p")
	}
	if opts.PreserveMTimes() {
		args = append(args, "-t")
	}
	if opts.PreserveUid() {
		args = append(args, "-o")
	}
	if opts.PreserveGid() {
		args = append(args, "-g")
	}
	if opts.PreserveDevices() {
		args = append(args, "-D")
	}
	if opts.PreserveSpecials() {
		args = append(args, "--specials")
	}
	if opts.PreserveHardLinks() {
		args = append(args, "-H")
	}
	if opts.AlwaysChecksum() {
		args = append(args, "-c")
	}
	if opts.DryRun() {
		args = append(args, "-n")
	}
	if opts.DeleteMode() {
		args = append(args, "--delete")
	}
	return append(args, ".")
}

// startInbandExchange performs the daemon handshake (greeting, module
// request, flag list) over an already-open connection: a TCP socket to the
// daemon, or a remote shell running `rsync --server --daemon` (rsync/main.c's
// start_inband_exchange). done reports that the daemon only listed modules
// and there is no transfer to run.
func startInbandExchange(osenv rsyncos.Std, opts *rsyncopts.Options, conn io.ReadWriter, module, path, user string) (done bool, err error) {
	rd := bufio.NewReader(conn)
	greeting, err := rd.ReadString('\n')
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(greeting, "@RSYNCD: ") {
		return false, fmt.Errorf("invalid server greeting: got %q", greeting)
	}

	fmt.Fprintf(conn, "@RSYNCD: %d\n", rsync.ProtocolVersion)
	fmt.Fprintf(conn, "%s\n", module)

	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return false, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "@RSYNCD: EXIT" {
			return true, nil
		}
		if strings.HasPrefix(line, "@ERROR") {
			return false, fmt.Errorf("daemon error: %s", line)
		}
		if rest, ok := strings.CutPrefix(line, "@RSYNCD: AUTHREQD "); ok {
			if err := respondToAuthChallenge(conn, opts, user, rest); err != nil {
				return false, err
			}
			continue
		}
		if line == "@RSYNCD: OK" {
			break
		}
		osenv.Logf("daemon: %s", line)
	}

	for _, flag := range serverOptions(opts) {
		fmt.Fprintf(conn, "%s\n", flag)
	}
	fmt.Fprintf(conn, "%s\n", path)
	fmt.Fprintln(conn)

	return false, nil
}

// respondToAuthChallenge answers a module's §4.8 password challenge: user
// and the module password (from --password-file, or RSYNC_PASSWORD if
// unset) feed daemonauth.Response against the base64-encoded challenge.
func respondToAuthChallenge(conn io.Writer, opts *rsyncopts.Options, user, challengeB64 string) error {
	if user == "" {
		return fmt.Errorf("daemon requires authentication but no user was given (use user@host::module)")
	}
	challenge, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return fmt.Errorf("malformed auth challenge: %w", err)
	}
	password, err := daemonPassword(opts)
	if err != nil {
		return err
	}
	response := daemonauth.Response(challenge, password)
	fmt.Fprintf(conn, "%s %s\n", user, response)
	return nil
}

// daemonPassword resolves the module password the way rsync(1) does: the
// first line of --password-file if set, else RSYNC_PASSWORD.
func daemonPassword(opts *rsyncopts.Options) (string, error) {
	if pf := opts.PasswordFile(); pf != "" {
		data, err := os.ReadFile(pf)
		if err != nil {
			return "", fmt.Errorf("reading --password-file: %w", err)
		}
		pw, _, _ := strings.Cut(string(data), "\n")
		return strings.TrimRight(pw, "\r\n"), nil
	}
	return os.Getenv("RSYNC_PASSWORD"), nil
}

// socketClient dials an rsync daemon directly over TCP (rsync/main.c's
// socket_client), performs the handshake, and runs the transfer.
func socketClient(ctx context.Context, osenv rsyncos.Std, opts *rsyncopts.Options, host, path string, port int, other string) (*rsyncstats.TransferStats, error) {
	user, machine, found := strings.Cut(host, "@")
	if !found {
		user, machine = "", host
	}

	addr := net.JoinHostPort(machine, strconv.Itoa(port))
	conn, err := transport.DialTCP(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing rsync daemon %s: %v", addr, err)
	}
	defer conn.Close()

	var rw io.ReadWriter = conn
	if limit := opts.BwlimitBytesPerSec(); limit > 0 {
		rw = transport.NewRateLimited(conn, limit)
	}

	module := path
	if idx := strings.IndexByte(module, '/'); idx > -1 {
		module = module[:idx]
	}

	done, err := startInbandExchange(osenv, opts, rw, module, path, user)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}

	log.Printf("connected to rsync daemon %s, module %q", addr, module)
	return clientRun(osenv, opts, rw, []string{other}, false)
}
