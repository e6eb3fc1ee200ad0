// Package rsyncstats holds the small stats value reported at the end of a
// transfer (§1 Stats type).
package rsyncstats

// TransferStats mirrors the three counters exchanged at the end of a
// session (§3, §8.4): total bytes read from the peer, bytes written to the
// peer, and the total size of the file set that was considered.
type TransferStats struct {
	Read    int64
	Written int64
	Size    int64

	// MatchedSize and LiteralSize break Size down into blocks that were
	// matched against the basis (copied) versus sent as literal data,
	// matching the Stats type of spec.md §1.
	MatchedSize int64
	LiteralSize int64

	NumFiles    int
	NumTransferred int
}

// Add accumulates per-file counters into a running total.
func (s *TransferStats) Add(o TransferStats) {
	s.Read += o.Read
	s.Written += o.Written
	s.Size += o.Size
	s.MatchedSize += o.MatchedSize
	s.LiteralSize += o.LiteralSize
	s.NumFiles += o.NumFiles
	s.NumTransferred += o.NumTransferred
}
