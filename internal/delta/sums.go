package delta

import (
	"io"

	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
)

// ComputeSums reads basis in non-overlapping blockSize-byte blocks and
// returns one BlockSum per block, for transmission to the peer that will
// run a Scanner against them (spec.md §4.4 step 1). Unlike NewIndex, this
// does not retain the blocks in memory beyond computing their checksums.
func ComputeSums(basis io.Reader, blockSize int, algo checksum.Algo, seed uint32) ([]BlockSum, int, error) {
	var sums []BlockSum
	strongLen := 0
	buf := make([]byte, blockSize)
	for {
		n, err := io.ReadFull(basis, buf)
		if n > 0 {
			block := buf[:n]
			strong, derr := checksum.Digest(block, algo, seed)
			if derr != nil {
				return nil, 0, derr
			}
			strongLen = len(strong)
			sums = append(sums, BlockSum{
				Weak:   checksum.Checksum(block, seed),
				Strong: strong,
				Len:    uint32(n),
			})
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return sums, strongLen, nil
}
