package delta

import (
	"io"
)

// Mode selects one of the three receiver-side apply strategies of §4.4
// "Apply modes".
type Mode int

const (
	Plain Mode = iota
	Inplace
	Sparse
)

// Basis is a random-access view of the basis file: plain/sparse apply reads
// from it independently of the output; inplace apply reads it through the
// same file descriptor as the output (see Apply's doc comment).
type Basis interface {
	io.ReaderAt
	Size() int64
}

// Apply consumes ops in order and writes the resulting bytes to out,
// copying basis regions from basis as directed. position tracks the
// current output offset, which Inplace mode compares against each Copy's
// Offset to turn same-position copies into pure seeks.
func Apply(mode Mode, basis Basis, out io.WriteSeeker, ops <-chan Op, errs <-chan error) error {
	var position int64
	copyBuf := make([]byte, 32*1024)

	for op := range ops {
		if !op.IsCopy {
			if _, err := writeData(mode, out, op.Data, &position); err != nil {
				return err
			}
			continue
		}
		if op.Offset+op.Len > basis.Size() {
			return &OpOverflowError{Offset: op.Offset, Len: op.Len}
		}
		if mode == Inplace && op.Offset == position {
			if _, err := out.Seek(op.Len, io.SeekCurrent); err != nil {
				return err
			}
			position += op.Len
			continue
		}
		if err := copyBasisRegion(out, basis, op.Offset, op.Len, copyBuf); err != nil {
			return err
		}
		position += op.Len
	}
	if err, ok := <-errs; ok && err != nil {
		return err
	}
	if mode == Sparse {
		if f, ok := out.(interface{ Truncate(int64) error }); ok {
			return f.Truncate(position)
		}
	}
	return nil
}

func writeData(mode Mode, out io.Writer, data []byte, position *int64) (int, error) {
	if mode == Sparse {
		n, err := writeSparse(out, data)
		*position += int64(n)
		return n, err
	}
	n, err := out.Write(data)
	*position += int64(n)
	return n, err
}

// writeSparse scans data for runs of zero bytes and punches holes for them
// instead of writing, per §4.4 "Sparse". Non-zero runs are written
// normally. Hole-punching itself is platform-specific (internal/xfs); this
// package only decides where the holes go, seeking the output forward
// across zero runs so a later os.File.Truncate establishes the final size
// and any unwritten bytes in between read back as zero (the same guarantee
// punch-hole gives on platforms that support it).
func writeSparse(out io.Writer, data []byte) (int, error) {
	seeker, canSeek := out.(io.Seeker)
	total := 0
	i := 0
	for i < len(data) {
		if data[i] == 0 {
			j := i
			for j < len(data) && data[j] == 0 {
				j++
			}
			run := j - i
			if canSeek {
				if _, err := seeker.Seek(int64(run), io.SeekCurrent); err != nil {
					return total, err
				}
			} else if _, err := out.Write(data[i:j]); err != nil {
				return total, err
			}
			total += run
			i = j
			continue
		}
		j := i
		for j < len(data) && data[j] != 0 {
			j++
		}
		n, err := out.Write(data[i:j])
		total += n
		if err != nil {
			return total, err
		}
		i = j
	}
	return total, nil
}

func copyBasisRegion(out io.Writer, basis Basis, offset, length int64, buf []byte) error {
	remaining := length
	at := offset
	for remaining > 0 {
		chunk := buf
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		n, err := basis.ReadAt(chunk, at)
		if n > 0 {
			if _, werr := out.Write(chunk[:n]); werr != nil {
				return werr
			}
			at += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF && remaining == 0 {
				break
			}
			return &BasisShortError{Path: ""}
		}
	}
	return nil
}
