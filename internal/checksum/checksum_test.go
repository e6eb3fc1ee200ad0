package checksum

import (
	"bytes"
	"testing"
)

func TestKernelsAgree(t *testing.T) {
	data := bytes.Repeat([]byte("rsync-delta-block-"), 37)
	scalarS1, scalarS2 := sumKernelScalar(data, 11)
	wideS1, wideS2 := sumKernelWide(data, 11)
	if scalarS1 != wideS1 || scalarS2 != wideS2 {
		t.Fatalf("kernel mismatch: scalar=(%d,%d) wide=(%d,%d)", scalarS1, scalarS2, wideS1, wideS2)
	}
}

func TestWeakRollMatchesBatch(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	const win = 8
	w := NewWeak(data[:win], 0)
	for i := 0; i+win < len(data); i++ {
		want := Checksum(data[i+1:i+1+win], 0)
		w.Roll(data[i], data[i+win])
		if got := w.Digest(); got != want {
			t.Fatalf("at i=%d: roll digest %d != batch digest %d", i, got, want)
		}
	}
}

func TestDigestMD4SeedAppended(t *testing.T) {
	d1, err := Digest([]byte("hello"), MD4, 1)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Digest([]byte("hello"), MD4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(d1, d2) {
		t.Fatal("expected different seeds to produce different MD4 digests")
	}
}

func TestNegotiatePreference(t *testing.T) {
	got, err := Negotiate(DefaultPreference, []Algo{MD4, MD5})
	if err != nil {
		t.Fatal(err)
	}
	if got != MD5 {
		t.Fatalf("got %s, want md5", got)
	}
}

func TestDigestUnsupported(t *testing.T) {
	if _, err := Digest(nil, "bogus", 0); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}
