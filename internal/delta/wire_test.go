package delta

import (
	"bytes"
	"testing"

	"github.com/oferchen/oc-rsync-sub001/internal/codec"
)

func TestOpsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := []Op{
		{Data: []byte("hello")},
		{IsCopy: true, Offset: 100, Len: 64},
		{Data: []byte("world")},
	}
	if err := WriteOps(&buf, want, codec.Zstd); err != nil {
		t.Fatal(err)
	}
	var got []Op
	if err := ReadOps(&buf, codec.Zstd, func(op Op) error {
		got = append(got, op)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d ops, want %d", len(got), len(want))
	}
	for i := range want {
		if want[i].IsCopy != got[i].IsCopy || want[i].Offset != got[i].Offset || want[i].Len != got[i].Len || !bytes.Equal(want[i].Data, got[i].Data) {
			t.Fatalf("op %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestOpsRoundTripNoCompression(t *testing.T) {
	var buf bytes.Buffer
	want := []Op{{Data: []byte("plain")}}
	if err := WriteOps(&buf, want, codec.None); err != nil {
		t.Fatal(err)
	}
	var got []Op
	if err := ReadOps(&buf, codec.None, func(op Op) error {
		got = append(got, op)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Data, want[0].Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestOpsRoundTripZlibX(t *testing.T) {
	var buf bytes.Buffer
	want := []Op{
		{Data: bytes.Repeat([]byte("a"), 4096)},
		{Data: bytes.Repeat([]byte("b"), 4096)},
	}
	if err := WriteOps(&buf, want, codec.ZlibX); err != nil {
		t.Fatal(err)
	}
	var got []Op
	if err := ReadOps(&buf, codec.ZlibX, func(op Op) error {
		got = append(got, op)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d ops, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i].Data, want[i].Data) {
			t.Fatalf("op %d: data mismatch", i)
		}
	}
}

func TestSumsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := []BlockSum{
		{Weak: 1, Strong: []byte{1, 2, 3, 4}},
		{Weak: 2, Strong: []byte{5, 6, 7, 8}},
	}
	if err := WriteSums(&buf, 64, 4, want); err != nil {
		t.Fatal(err)
	}
	bs, got, err := ReadSums(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if bs != 64 || len(got) != 2 {
		t.Fatalf("got blockSize=%d, %d sums", bs, len(got))
	}
	idx := IndexFromSums(bs, got, 0)
	if len(idx.Lookup(1)) != 1 {
		t.Fatalf("expected lookup(1) to find the block")
	}
}
