// Package sender implements the source-side half of a transfer (spec.md
// §4.1, §4.4 step 2, §4.5): it builds and transmits the file list, then for
// each file the generator names, reads back a basis block-checksum list and
// scans the local file against it to produce an op stream.
package sender

import (
	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
	"github.com/oferchen/oc-rsync-sub001/internal/codec"
	"github.com/oferchen/oc-rsync-sub001/internal/filter"
	"github.com/oferchen/oc-rsync-sub001/internal/log"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncerr"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncopts"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncwire"
)

// Transfer holds the state of one source-side connection.
type Transfer struct {
	Logger log.Logger
	Opts   *rsyncopts.Options
	Conn   *rsyncwire.Conn
	Seed   int32

	// Codec is the compression codec negotiated for this connection
	// (§4.8); the zero value is treated as codec.None.
	Codec codec.Name

	// ChecksumAlgo overrides the strong-hash algorithm used to verify
	// candidate matches; the zero value selects checksum.DefaultPreference's
	// first entry.
	ChecksumAlgo checksum.Algo
	// BlockSize carries the --block-size value. The sender does not read
	// it: sendFile1 always uses the block length of the basis sums the
	// generator sent (which applies receiver.blockSizeOrDefault).
	BlockSize int

	// Matcher restricts which local paths are included in the file list
	// (spec.md §4.2); nil means "include everything".
	Matcher *filter.Matcher

	// Errors collects recoverable per-file failures (unreadable source
	// files) so a transfer with one bad file still completes and reports
	// the rest, the way --ignore-errors's sibling behavior in rsync(1)
	// survives individual I/O failures and reports them at the end.
	Errors rsyncerr.Collector
}

func (st *Transfer) algo() checksum.Algo {
	if st.ChecksumAlgo != "" {
		return st.ChecksumAlgo
	}
	return checksum.DefaultPreference[0]
}
