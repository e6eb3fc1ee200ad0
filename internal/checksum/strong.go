package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/mmcloughlin/md4"
)

// Algo names one of the four strong-hash kernels negotiated per §4.1.
type Algo string

const (
	MD4    Algo = "md4"
	MD5    Algo = "md5"
	SHA1   Algo = "sha1"
	XXHash Algo = "xxhash"
)

// DefaultPreference is the preference order consulted when the caller (or
// RSYNC_CHECKSUM_LIST) does not specify one explicitly (§4.1).
var DefaultPreference = []Algo{SHA1, MD5, MD4}

// UnsupportedAlgoError is returned by Digest and Negotiate for an unknown
// algorithm name.
type UnsupportedAlgoError struct{ Name string }

func (e *UnsupportedAlgoError) Error() string {
	return fmt.Sprintf("checksum: unsupported algorithm %q", e.Name)
}

// Digest computes the strong hash of data under algo. For MD4 the 32-bit
// seed is appended little-endian to the hashed bytes; for xxHash the seed is
// the constructor seed; MD5 and SHA-1 ignore the seed entirely, per §4.1.
func Digest(data []byte, algo Algo, seed uint32) ([]byte, error) {
	switch algo {
	case MD4:
		h := md4.New()
		h.Write(data)
		var seedBuf [4]byte
		binary.LittleEndian.PutUint32(seedBuf[:], seed)
		h.Write(seedBuf[:])
		return h.Sum(nil), nil
	case MD5:
		sum := md5.Sum(data)
		return sum[:], nil
	case SHA1:
		sum := sha1.Sum(data)
		return sum[:], nil
	case XXHash:
		h := xxhash.NewWithSeed(uint64(seed))
		h.Write(data)
		var out [8]byte
		binary.BigEndian.PutUint64(out[:], h.Sum64())
		return out[:], nil
	default:
		return nil, &UnsupportedAlgoError{Name: string(algo)}
	}
}

// Negotiate picks the first algorithm in mine that also appears in peer,
// scanning mine in preference order, as required by §4.1's "first match
// wins" negotiation rule.
func Negotiate(mine, peer []Algo) (Algo, error) {
	peerSet := make(map[Algo]bool, len(peer))
	for _, a := range peer {
		peerSet[a] = true
	}
	for _, a := range mine {
		if peerSet[a] {
			return a, nil
		}
	}
	return "", fmt.Errorf("checksum: no common strong-hash algorithm in %v / %v", mine, peer)
}

// ParsePreference converts an already-split list of algorithm names (such as
// the comma-separated entries of RSYNC_CHECKSUM_LIST) to Algo values,
// rejecting unknown names.
func ParsePreference(names []string) ([]Algo, error) {
	out := make([]Algo, 0, len(names))
	for _, n := range names {
		a := Algo(n)
		switch a {
		case MD4, MD5, SHA1, XXHash:
			out = append(out, a)
		default:
			return nil, &UnsupportedAlgoError{Name: n}
		}
	}
	return out, nil
}
