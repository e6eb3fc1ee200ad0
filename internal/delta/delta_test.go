package delta

import (
	"bytes"
	"io"
	"testing"

	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
)

type bytesBasis struct{ b []byte }

func (bb *bytesBasis) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(bb.b).ReadAt(p, off)
}
func (bb *bytesBasis) Size() int64 { return int64(len(bb.b)) }

type seekBuf struct {
	bytes.Buffer
	pos int64
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	s.pos += offset
	for s.Buffer.Len() < int(s.pos) {
		s.Buffer.WriteByte(0)
	}
	return s.pos, nil
}

func TestScanAndApplyRoundTrip(t *testing.T) {
	basis := bytes.Repeat([]byte("0123456789"), 100) // 1000 bytes
	target := append(append([]byte{}, basis...), []byte("-appended-tail-data")...)

	idx, err := NewIndex(bytes.NewReader(basis), 64, 1024, checksum.SHA1, 0)
	if err != nil {
		t.Fatal(err)
	}
	sc := NewScanner(idx, 64, checksum.SHA1, 0)

	var ops []Op
	if err := sc.Scan(bytes.NewReader(target), func(op Op) error {
		ops = append(ops, op)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	var sawCopy, sawData bool
	for _, op := range ops {
		if op.IsCopy {
			sawCopy = true
		} else {
			sawData = true
		}
	}
	if !sawCopy {
		t.Fatal("expected at least one Copy op matching the basis-identical prefix")
	}
	if !sawData {
		t.Fatal("expected at least one Data op for the appended tail")
	}

	// Reassemble target from ops against the basis and confirm it matches.
	var out bytes.Buffer
	bb := &bytesBasis{b: basis}
	for _, op := range ops {
		if op.IsCopy {
			buf := make([]byte, op.Len)
			if _, err := bb.ReadAt(buf, op.Offset); err != nil && err != io.EOF {
				t.Fatal(err)
			}
			out.Write(buf)
		} else {
			out.Write(op.Data)
		}
	}
	if !bytes.Equal(out.Bytes(), target) {
		t.Fatalf("reassembled %d bytes, want %d bytes matching target", out.Len(), len(target))
	}
}

func TestFilterResumeDropsKnownGoodPrefix(t *testing.T) {
	ops := []Op{
		{Data: []byte("hello ")},
		{IsCopy: true, Offset: 0, Len: 10},
		{Data: []byte("world")},
	}
	got := FilterResume(ops, 8)
	if len(got) != 2 {
		t.Fatalf("got %d ops, want 2", len(got))
	}
	if !got[0].IsCopy || got[0].Offset != 2 || got[0].Len != 8 {
		t.Fatalf("got %+v, want truncated copy at offset 2 len 8", got[0])
	}
	if got[1].IsCopy {
		t.Fatalf("got %+v, want data op", got[1])
	}
}
