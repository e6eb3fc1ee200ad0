// Package transport implements the byte-pipe transports of spec.md §4.8:
// an in-process local pipe, a TCP dialer for the daemon protocol, an
// SSH-child launcher for the remote-shell protocol, and a bandwidth-limiting
// wrapper usable over any of them.
package transport

import (
	"context"
	"io"
	"net"
)

// Conn is a byte-pipe transport: a duplex stream plus Close. Every
// transport in this package returns one of these, so the handshake and
// framing code in internal/rsyncwire is transport-agnostic.
type Conn interface {
	io.ReadWriteCloser
}

// Pipe is the local in-process transport of §4.8 "Local pipe transport":
// an (io.Reader, io.Writer) pair wired directly to another goroutine via
// io.Pipe, used for tests and for the single-process side of local
// transfers.
type Pipe struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (p *Pipe) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewLocalPair returns two Conns wired directly to each other: writes on
// one side are reads on the other, in both directions.
func NewLocalPair() (a, b *Pipe) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a = &Pipe{Reader: ar, Writer: aw, closers: []io.Closer{ar, aw}}
	b = &Pipe{Reader: br, Writer: bw, closers: []io.Closer{br, bw}}
	return a, b
}

// DialTCP connects to a daemon listener (§6.1 wire protocol over
// `rsync://host[:port]/module`).
func DialTCP(ctx context.Context, addr string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Listen starts a daemon TCP listener.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}
