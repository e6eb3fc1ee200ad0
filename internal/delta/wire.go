package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/oferchen/oc-rsync-sub001/internal/codec"
)

// BlockSum is one basis block's weak/strong checksum pair, as exchanged
// between generator (destination side) and sender (source side) before the
// sender can run its own Scanner against the basis checksums.
type BlockSum struct {
	Weak   uint32
	Strong []byte
	// Len is the block's true length in bytes. It is usually blockSize,
	// except for the final block of a basis whose size isn't a multiple of
	// blockSize. Zero means "assume blockSize" for callers that construct a
	// BlockSum without tracking it.
	Len uint32
}

// WriteSums serializes a basis's block-checksum list: blockSize, strongLen,
// count, then count*(weak u32 + len u32 + strong bytes).
func WriteSums(w io.Writer, blockSize int, strongLen int, sums []BlockSum) error {
	if err := writeU32w(w, uint32(blockSize)); err != nil {
		return err
	}
	if err := writeU32w(w, uint32(strongLen)); err != nil {
		return err
	}
	if err := writeU32w(w, uint32(len(sums))); err != nil {
		return err
	}
	for _, s := range sums {
		if err := writeU32w(w, s.Weak); err != nil {
			return err
		}
		l := s.Len
		if l == 0 {
			l = uint32(blockSize)
		}
		if err := writeU32w(w, l); err != nil {
			return err
		}
		if len(s.Strong) != strongLen {
			return fmt.Errorf("delta: strong hash length %d != declared %d", len(s.Strong), strongLen)
		}
		if _, err := w.Write(s.Strong); err != nil {
			return err
		}
	}
	return nil
}

// ReadSums is the mirror of WriteSums, returning the declared block size
// alongside the checksum list.
func ReadSums(r io.Reader) (blockSize int, sums []BlockSum, err error) {
	bs, err := readU32r(r)
	if err != nil {
		return 0, nil, err
	}
	strongLen, err := readU32r(r)
	if err != nil {
		return 0, nil, err
	}
	count, err := readU32r(r)
	if err != nil {
		return 0, nil, err
	}
	out := make([]BlockSum, count)
	for i := range out {
		weak, err := readU32r(r)
		if err != nil {
			return 0, nil, err
		}
		blockLen, err := readU32r(r)
		if err != nil {
			return 0, nil, err
		}
		strong := make([]byte, strongLen)
		if _, err := io.ReadFull(r, strong); err != nil {
			return 0, nil, err
		}
		out[i] = BlockSum{Weak: weak, Strong: strong, Len: blockLen}
	}
	return int(bs), out, nil
}

// IndexFromSums builds an Index directly from a received checksum list,
// without re-reading a local basis file: offsets are implied by block
// position (i*blockSize), matching how the block list was produced.
func IndexFromSums(blockSize int, sums []BlockSum, window int) *Index {
	idx := &Index{byWeak: make(map[uint32][]*blockInfo)}
	if window <= 0 {
		window = len(sums)
	}
	fifo, _ := newEvictingFIFO(window, idx)
	idx.fifo = fifo
	for i, s := range sums {
		l := int64(s.Len)
		if l == 0 {
			l = int64(blockSize)
		}
		idx.insert(&blockInfo{
			weak:   s.Weak,
			strong: s.Strong,
			offset: int64(i) * int64(blockSize),
			len:    l,
		})
	}
	return idx
}

// WriteOps serializes an op stream: each op is a tag byte (1=Data,
// 2=Copy) followed by its payload, terminated by a 0 tag. Data payloads are
// compressed independently with name (§4.5 step 8), exploiting ZlibX's
// self-contained-block design so each one decompresses on its own.
func WriteOps(w io.Writer, ops []Op, name codec.Name) error {
	for _, op := range ops {
		if op.IsCopy {
			if _, err := w.Write([]byte{2}); err != nil {
				return err
			}
			if err := writeI64w(w, op.Offset); err != nil {
				return err
			}
			if err := writeI64w(w, op.Len); err != nil {
				return err
			}
			continue
		}
		payload, err := compressPayload(name, op.Data)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if err := writeU32w(w, uint32(len(payload))); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0})
	return err
}

// ReadOps reads one op at a time, calling emit for each, stopping cleanly
// at the terminating 0 tag. name must match the codec WriteOps used.
func ReadOps(r io.Reader, name codec.Name, emit func(Op) error) error {
	var tag [1]byte
	for {
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			return err
		}
		switch tag[0] {
		case 0:
			return nil
		case 1:
			n, err := readU32r(r)
			if err != nil {
				return err
			}
			payload := make([]byte, n)
			if _, err := io.ReadFull(r, payload); err != nil {
				return err
			}
			data, err := decompressPayload(name, payload)
			if err != nil {
				return err
			}
			if err := emit(Op{Data: data}); err != nil {
				return err
			}
		case 2:
			offset, err := readI64r(r)
			if err != nil {
				return err
			}
			length, err := readI64r(r)
			if err != nil {
				return err
			}
			if err := emit(Op{IsCopy: true, Offset: offset, Len: length}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("delta: unknown op tag %d", tag[0])
		}
	}
}

// compressPayload runs data through a fresh codec.Encoder for name and
// returns the compressed bytes. An empty name is treated as codec.None.
func compressPayload(name codec.Name, data []byte) ([]byte, error) {
	if name == "" {
		name = codec.None
	}
	if name == codec.None {
		return data, nil
	}
	var buf bytes.Buffer
	enc, err := codec.NewEncoder(name, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressPayload is the mirror of compressPayload.
func decompressPayload(name codec.Name, payload []byte) ([]byte, error) {
	if name == "" {
		name = codec.None
	}
	if name == codec.None {
		return payload, nil
	}
	dec, err := codec.NewDecoder(name, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func writeU32w(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32r(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeI64w(w io.Writer, v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

func readI64r(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}
