package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, name := range []Name{None, Zlib, ZlibX, Zstd} {
		t.Run(string(name), func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := NewEncoder(name, &buf)
			if err != nil {
				t.Fatal(err)
			}
			want := []byte("the quick brown fox jumps over the lazy dog, repeatedly, repeatedly")
			if _, err := enc.Write(want); err != nil {
				t.Fatal(err)
			}
			if err := enc.Close(); err != nil {
				t.Fatal(err)
			}
			dec, err := NewDecoder(name, &buf)
			if err != nil {
				t.Fatal(err)
			}
			got, err := io.ReadAll(dec)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("got %q, want %q", got, want)
			}
		})
	}
}

func TestNegotiate(t *testing.T) {
	got, err := Negotiate(Preferred, []Name{Zlib, None})
	if err != nil {
		t.Fatal(err)
	}
	if got != Zlib {
		t.Fatalf("got %s, want zlib", got)
	}
}
