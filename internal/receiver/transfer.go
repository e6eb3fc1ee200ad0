// Package receiver implements the destination-side half of a transfer
// (spec.md §4 "Transfer Pipeline"): it walks the existing destination tree
// to build a basis block index per file, exchanges that index and an op
// stream with the sender, applies the resulting ops, and restores metadata.
package receiver

import (
	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
	"github.com/oferchen/oc-rsync-sub001/internal/codec"
	"github.com/oferchen/oc-rsync-sub001/internal/delta"
	"github.com/oferchen/oc-rsync-sub001/internal/log"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncerr"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncwire"
)

// TransferOpts carries the subset of command-line/daemon options that
// change receiver behavior, mirroring the Opts() accessors on
// *rsyncopts.Options that the caller already parsed.
type TransferOpts struct {
	DryRun bool
	Server bool

	DeleteMode        bool
	PreserveUid       bool
	PreserveGid       bool
	PreserveLinks     bool
	PreservePerms     bool
	PreserveDevices   bool
	PreserveSpecials  bool
	PreserveTimes     bool
	PreserveXattrs    bool
	PreserveACLs      bool
	PreserveHardlinks bool

	Verbose bool

	BlockSize     int
	ChecksumAlgo  checksum.Algo
	ApplyMode     delta.Mode
	BasisWindow   int
	InPlace       bool
	AppendMode    bool
	NumericIDs    bool

	// IgnoreErrors lets deleteFiles proceed even after a recoverable
	// per-file I/O error, matching rsync(1)'s --ignore-errors.
	IgnoreErrors bool
}

// Transfer holds the state of one destination-side connection.
type Transfer struct {
	Logger log.Logger
	Opts   *TransferOpts

	Dest     string
	DestRoot *Root

	Env  rsyncos.Std
	Conn *rsyncwire.Conn
	Seed int32

	// Codec is the compression codec negotiated for this connection
	// (§4.8); the zero value is treated as codec.None.
	Codec codec.Name

	// IOErrors counts recoverable per-file I/O errors encountered while
	// walking or applying; deleteFiles refuses to run when it's nonzero,
	// matching rsync's refusal to delete after partial failures.
	IOErrors int

	// Errors collects those same failures in typed form so the final exit
	// code can distinguish an I/O problem from a protocol one (spec.md §7).
	Errors rsyncerr.Collector
}

// recordError increments IOErrors and adds err to Errors, logging it. Call
// this instead of aborting the transfer over one recoverable per-file
// failure.
func (rt *Transfer) recordError(err error) {
	rt.IOErrors++
	rt.Errors.Add(err)
	rt.Logger.Printf("%v", err)
}

func blockSizeOrDefault(n int) int {
	if n <= 0 {
		return 700
	}
	return n
}
