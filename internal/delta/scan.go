package delta

import (
	"bytes"
	"io"

	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
)

// LitCap bounds the pending-literal buffer (§4.4 step 3).
const LitCap = 1 << 20 // 1 MiB

// Scanner runs the target-scan side of §4.4 step 2: it reads the target
// byte-by-byte through a ring buffer, and on a weak+strong match against the
// basis index emits a Copy op, otherwise accumulates a literal buffer that
// is flushed as Data once it reaches LitCap or at end-of-stream.
type Scanner struct {
	index     *Index
	blockSize int
	algo      checksum.Algo
	seed      uint32

	ring    []byte
	literal []byte
}

func NewScanner(index *Index, blockSize int, algo checksum.Algo, seed uint32) *Scanner {
	return &Scanner{index: index, blockSize: blockSize, algo: algo, seed: seed}
}

// Scan reads target to completion, calling emit for each Op in order. The
// final emit always carries the trailing content, if any; callers do not
// need a separate "done" sentinel since Scan returning nil error signals
// end of stream.
func (s *Scanner) Scan(target io.Reader, emit func(Op) error) error {
	buf := make([]byte, 32*1024)
	var weak *checksum.Weak
	var pendingOut byte
	havePendingOut := false

	flushLiteral := func() error {
		if len(s.literal) == 0 {
			return nil
		}
		data := append([]byte(nil), s.literal...)
		s.literal = s.literal[:0]
		return emit(Op{Data: data})
	}

	for {
		n, rerr := target.Read(buf)
		for i := 0; i < n; i++ {
			b := buf[i]
			s.ring = append(s.ring, b)
			if len(s.ring) < s.blockSize {
				continue
			}
			if len(s.ring) == s.blockSize {
				switch {
				case weak == nil:
					w := checksum.NewWeak(s.ring, s.seed)
					weak = &w
				case havePendingOut:
					// The window grew back to full size after the previous
					// miss popped its front byte: roll the byte that left
					// against b, the byte that just entered, instead of
					// rescanning the whole window (§4.4 step 2).
					weak.Roll(pendingOut, b)
					havePendingOut = false
				}
			}
			if match, ok := s.tryMatch(weak.Digest()); ok {
				if err := flushLiteral(); err != nil {
					return err
				}
				if err := emit(Op{IsCopy: true, Offset: match.offset, Len: match.len}); err != nil {
					return err
				}
				s.ring = s.ring[:0]
				weak = nil
				havePendingOut = false
				continue
			}
			// Miss: pop the front byte into the literal buffer; the window
			// shrinks to blockSize-1 and is rolled forward once it refills
			// on the next iteration.
			out := s.ring[0]
			s.ring = s.ring[1:]
			s.literal = append(s.literal, out)
			if len(s.literal) >= LitCap {
				if err := flushLiteral(); err != nil {
					return err
				}
			}
			pendingOut = out
			havePendingOut = true
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	// Termination (§4.4 step 4): flush whatever remains of the ring into
	// the literal buffer, then flush the literal buffer.
	s.literal = append(s.literal, s.ring...)
	s.ring = s.ring[:0]
	return flushLiteral()
}

// tryMatch checks the index for a candidate whose strong hash and length
// match the current ring contents exactly.
func (s *Scanner) tryMatch(weak uint32) (*blockInfo, bool) {
	candidates := s.index.Lookup(weak)
	if len(candidates) == 0 {
		return nil, false
	}
	strong, err := checksum.Digest(s.ring, s.algo, s.seed)
	if err != nil {
		return nil, false
	}
	for _, c := range candidates {
		if c.len == int64(len(s.ring)) && bytes.Equal(c.strong, strong) {
			return c, true
		}
	}
	return nil, false
}
