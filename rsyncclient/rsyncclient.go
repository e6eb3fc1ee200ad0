// Package rsyncclient provides a programmatic rsync client for embedding
// in other Go programs, independent of the oc-rsync CLI's process/argv
// plumbing in internal/maincmd.
package rsyncclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oferchen/oc-rsync-sub001"
	"github.com/oferchen/oc-rsync-sub001/internal/codec"
	"github.com/oferchen/oc-rsync-sub001/internal/filter"
	"github.com/oferchen/oc-rsync-sub001/internal/log"
	"github.com/oferchen/oc-rsync-sub001/internal/receiver"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncopts"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncstats"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncwire"
	"github.com/oferchen/oc-rsync-sub001/internal/sender"
)

// Client runs one side (sender or receiver) of an rsync transfer over a
// caller-supplied connection; the caller is responsible for establishing
// that connection (a subprocess's stdin/stdout, a TCP dial, an in-memory
// pipe) the way internal/maincmd does for the oc-rsync CLI.
type Client struct {
	osenv rsyncos.Std
	opts  *rsyncopts.Options
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithSender makes the client act as the sending side of the transfer
// (the remote peer becomes the receiver), matching the `--sender` flag
// rsync(1) passes to the remote `--server` process.
func WithSender() Option {
	return func(c *Client) { c.opts.SetSender() }
}

// WithStderr directs diagnostic output to w instead of os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(c *Client) { c.osenv.Stderr = w }
}

// New parses args the same way the oc-rsync CLI parses its own argv (minus
// the argv[0] program name) and returns a Client ready to Run a transfer.
func New(args []string, opts ...Option) (*Client, error) {
	osenv := &rsyncos.Env{
		Std: rsyncos.Std{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		},
	}
	pc, err := rsyncopts.ParseArguments(osenv, args)
	if err != nil {
		return nil, err
	}
	c := &Client{
		osenv: osenv.Std,
		opts:  pc.Options,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Run executes the transfer over rw, which must already be connected to a
// peer speaking the rsync `--server` protocol (e.g. the stdin/stdout of an
// `rsync --server` subprocess, as started by the caller). paths is the
// local source (when WithSender was used) or destination directory.
func (c *Client) Run(ctx context.Context, rw io.ReadWriter, paths []string) error {
	if len(paths) != 1 {
		return fmt.Errorf("rsyncclient: exactly one local path supported, got %q", paths)
	}

	crd := &rsyncwire.CountingReader{R: rw}
	cwr := &rsyncwire.CountingWriter{W: rw}
	conn := &rsyncwire.Conn{
		Reader: crd,
		Writer: cwr,
	}

	if err := conn.WriteInt32(rsync.ProtocolVersion); err != nil {
		return err
	}
	remoteProtocol, err := conn.ReadInt32()
	if err != nil {
		return err
	}
	if c.opts.Verbose() {
		log.Printf("remote protocol: %d", remoteProtocol)
	}

	seed, err := conn.ReadInt32()
	if err != nil {
		return fmt.Errorf("reading seed: %v", err)
	}

	codecName, err := codec.OfferThenAccept(conn, codec.PreferenceFor(c.opts.Compress(), c.opts.CompressChoice()))
	if err != nil {
		return fmt.Errorf("negotiating codec: %v", err)
	}
	if c.opts.Verbose() {
		log.Printf("negotiated codec: %s", codecName)
	}

	mrd := &rsyncwire.MultiplexReader{Reader: rw}
	conn.Reader = bufio.NewReaderSize(mrd, 256*1024)

	if c.opts.Sender() {
		_, err := c.runSender(conn, crd, cwr, paths[0], seed, codecName)
		return err
	}
	return c.runReceiver(conn, paths[0], seed, codecName)
}

func (c *Client) runSender(conn *rsyncwire.Conn, crd *rsyncwire.CountingReader, cwr *rsyncwire.CountingWriter, path string, seed int32, codecName codec.Name) (*rsyncstats.TransferStats, error) {
	st := &sender.Transfer{
		Logger:    log.New(c.osenv.Stderr),
		Opts:      c.opts,
		Conn:      conn,
		Seed:      seed,
		Codec:     codecName,
		BlockSize: c.opts.BlockSize(),
	}

	root, base := path, "."
	if !strings.HasSuffix(path, "/") {
		root, base = splitDir(path)
	}
	rules, err := c.opts.FilterRules()
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		st.Matcher = filter.New(root, rules)
	}
	return st.Do(crd, cwr, root, []string{base}, nil)
}

func (c *Client) runReceiver(conn *rsyncwire.Conn, dest string, seed int32, codecName codec.Name) error {
	rt := &receiver.Transfer{
		Logger: log.New(c.osenv.Stderr),
		Opts: &receiver.TransferOpts{
			Verbose: c.opts.Verbose(),
			DryRun:  c.opts.DryRun(),

			DeleteMode:        c.opts.DeleteMode(),
			PreserveGid:       c.opts.PreserveGid(),
			PreserveUid:       c.opts.PreserveUid(),
			PreserveLinks:     c.opts.PreserveLinks(),
			PreservePerms:     c.opts.PreservePerms(),
			PreserveDevices:   c.opts.PreserveDevices(),
			PreserveSpecials:  c.opts.PreserveSpecials(),
			PreserveTimes:     c.opts.PreserveMTimes(),
			PreserveHardlinks: c.opts.PreserveHardLinks(),
			IgnoreErrors:      c.opts.IgnoreErrors(),
			BlockSize:         c.opts.BlockSize(),
		},
		Dest:  dest,
		Env:   c.osenv,
		Conn:  conn,
		Seed:  seed,
		Codec: codecName,
	}

	const exclusionListEnd = 0
	if err := conn.WriteInt32(exclusionListEnd); err != nil {
		return err
	}

	fileList, err := rt.ReceiveFileList()
	if err != nil {
		return err
	}
	_, err = rt.Do(conn, fileList, false)
	return err
}

func splitDir(path string) (dir, base string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ".", path
	}
	return path[:idx], path[idx+1:]
}
