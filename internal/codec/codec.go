// Package codec implements the wire compression codecs negotiated in the
// capability exchange of §4.8: Zlib, ZlibX (rsync's truncated-flush zlib
// variant), and Zstd.
package codec

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// Name identifies a negotiated codec.
type Name string

const (
	None  Name = "none"
	Zlib  Name = "zlib"
	ZlibX Name = "zlibx"
	Zstd  Name = "zstd"
)

// Preferred is the default codec preference list sent during capability
// negotiation, most-compressed first.
var Preferred = []Name{Zstd, ZlibX, Zlib, None}

// Negotiate returns the first codec in mine that also appears in peer.
func Negotiate(mine, peer []Name) (Name, error) {
	peerSet := make(map[Name]bool, len(peer))
	for _, n := range peer {
		peerSet[n] = true
	}
	for _, n := range mine {
		if peerSet[n] {
			return n, nil
		}
	}
	return "", fmt.Errorf("codec: no common codec in %v / %v", mine, peer)
}

// Encoder compresses written bytes and must be Close'd to flush the final
// block.
type Encoder interface {
	io.WriteCloser
}

// Decoder decompresses bytes read from an underlying stream.
type Decoder interface {
	io.ReadCloser
}

// NewEncoder wraps w with the compressor for name. None returns w unchanged
// wrapped in a no-op closer.
func NewEncoder(name Name, w io.Writer) (Encoder, error) {
	switch name {
	case None:
		return nopWriteCloser{w}, nil
	case Zlib, ZlibX:
		fw, err := flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if name == ZlibX {
			return &zlibXWriter{fw: fw}, nil
		}
		return fw, nil
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// NewDecoder wraps r with the decompressor for name.
func NewDecoder(name Name, r io.Reader) (Decoder, error) {
	switch name {
	case None:
		return io.NopCloser(r), nil
	case Zlib, ZlibX:
		return flate.NewReader(r), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// zlibXWriter implements rsync's "zlibx" variant: every Write is followed by
// a Z_SYNC_FLUSH-equivalent flush so each call produces a self-contained,
// independently decompressible block (used for per-block delta literals
// rather than whole-stream compression). klauspost/compress's flate.Writer
// exposes Flush for exactly this purpose.
type zlibXWriter struct {
	fw *flate.Writer
}

func (z *zlibXWriter) Write(p []byte) (int, error) {
	n, err := z.fw.Write(p)
	if err != nil {
		return n, err
	}
	if err := z.fw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

func (z *zlibXWriter) Close() error {
	return z.fw.Close()
}
