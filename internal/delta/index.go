package delta

import (
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
)

// blockInfo describes one indexed basis block.
type blockInfo struct {
	weak   uint32
	strong []byte
	offset int64
	len    int64
}

// Index is the bounded basis-block index of §4.4 step 1: a FIFO of the last
// window inserts (an LRU cache used purely as a bounded FIFO — every insert
// is a fresh key, so there are never any "hits" to reorder) keyed by
// insertion sequence, with an eviction callback that removes the evicted
// block's triple from the secondary weak-checksum map. This bounds memory
// to window blocks while still letting near-duplicate regions match.
type Index struct {
	seq    uint64
	fifo   *lru.Cache[uint64, *blockInfo]
	byWeak map[uint32][]*blockInfo
}

// NewIndex builds the bounded index by reading basis in non-overlapping
// blockSize-byte blocks, keeping at most window entries.
func NewIndex(basis io.Reader, blockSize int, window int, algo checksum.Algo, seed uint32) (*Index, error) {
	idx := &Index{byWeak: make(map[uint32][]*blockInfo)}
	fifo, err := newEvictingFIFO(window, idx)
	if err != nil {
		return nil, err
	}
	idx.fifo = fifo

	buf := make([]byte, blockSize)
	var offset int64
	for {
		n, err := io.ReadFull(basis, buf)
		if n > 0 {
			block := append([]byte(nil), buf[:n]...)
			strong, derr := checksum.Digest(block, algo, seed)
			if derr != nil {
				return nil, derr
			}
			idx.insert(&blockInfo{
				weak:   checksum.Checksum(block, seed),
				strong: strong,
				offset: offset,
				len:    int64(n),
			})
			offset += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// newEvictingFIFO builds the LRU-backed bounded FIFO shared by NewIndex and
// IndexFromSums, wiring its eviction callback back to idx.remove.
func newEvictingFIFO(window int, idx *Index) (*lru.Cache[uint64, *blockInfo], error) {
	if window <= 0 {
		window = 1
	}
	return lru.NewWithEvict[uint64, *blockInfo](window, func(_ uint64, evicted *blockInfo) {
		idx.remove(evicted)
	})
}

func (idx *Index) insert(b *blockInfo) {
	idx.byWeak[b.weak] = append(idx.byWeak[b.weak], b)
	idx.fifo.Add(idx.seq, b)
	idx.seq++
}

// remove drops the specific (offset, strong, len) triple for b's weak
// bucket, called from the FIFO's eviction callback.
func (idx *Index) remove(b *blockInfo) {
	slice := idx.byWeak[b.weak]
	for i, cand := range slice {
		if cand == b {
			idx.byWeak[b.weak] = append(slice[:i], slice[i+1:]...)
			break
		}
	}
	if len(idx.byWeak[b.weak]) == 0 {
		delete(idx.byWeak, b.weak)
	}
}

// Lookup returns candidate blocks sharing weak, sorted so the lowest
// offset is tried first (§4.4 "Tie-break rules").
func (idx *Index) Lookup(weak uint32) []*blockInfo {
	els := idx.byWeak[weak]
	if len(els) == 0 {
		return nil
	}
	out := append([]*blockInfo(nil), els...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].offset < out[j-1].offset; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
