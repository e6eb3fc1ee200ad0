// Package rsyncerr implements the error taxonomy of spec.md §7: a small set
// of typed errors that every exit path funnels through, plus the exit-code
// mapping rsync(1) callers expect.
package rsyncerr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind distinguishes the broad categories of §7.
type Kind int

const (
	KindIO Kind = iota
	KindProtocol
	KindAuth
	KindConfig
	KindFilter
	KindCodec
	KindMaxAlloc
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindConfig:
		return "config"
	case KindFilter:
		return "filter"
	case KindCodec:
		return "codec"
	case KindMaxAlloc:
		return "max-alloc"
	default:
		return "unknown"
	}
}

// Error is the typed error carried through this module's error paths. Wrap
// an underlying cause with New so that ExitCode and errors.As can classify
// it uniformly regardless of where it originated.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IOError reports a filesystem I/O failure (open/read/write/rename/...).
func IOError(op string, err error) error { return New(KindIO, op, err) }

// ProtocolError reports a wire-framing or version-negotiation violation.
func ProtocolError(op string, err error) error { return New(KindProtocol, op, err) }

// AuthError reports a daemon authentication failure.
func AuthError(op string, err error) error { return New(KindAuth, op, err) }

// ConfigError reports a malformed daemon config or command-line option.
func ConfigError(op string, err error) error { return New(KindConfig, op, err) }

// FilterError reports a malformed filter rule or merge-file reference.
func FilterError(op string, err error) error { return New(KindFilter, op, err) }

// CodecError reports a compression/decompression failure.
func CodecError(op string, err error) error { return New(KindCodec, op, err) }

// MaxAllocError reports a configured allocation ceiling being exceeded
// (§5 Memory budget).
func MaxAllocError(op string, err error) error { return New(KindMaxAlloc, op, err) }

// Collector aggregates per-file failures under --ignore-errors into a
// single terminal error without losing any individual failure, the way a
// many-file transfer must report N problems as one outcome.
type Collector struct {
	err *multierror.Error
}

// Add records err if non-nil. Safe to call with a nil error (no-op).
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.err = multierror.Append(c.err, err)
}

// Err returns the aggregated error, or nil if nothing was added.
func (c *Collector) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err.ErrorOrNil()
}

// Len reports how many errors have been collected so far.
func (c *Collector) Len() int {
	if c.err == nil {
		return 0
	}
	return len(c.err.Errors)
}

// ExitCode maps an error to the rsync(1)-compatible process exit code
// (§7 "Exit codes"). A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case KindProtocol:
			return 12
		case KindAuth:
			return 5
		case KindConfig:
			return 1
		case KindFilter:
			return 1
		case KindCodec:
			return 12
		case KindMaxAlloc:
			return 22
		case KindIO:
			return 23
		}
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return 23
	}
	return 1
}
