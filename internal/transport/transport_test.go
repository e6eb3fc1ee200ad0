package transport

import (
	"io"
	"testing"
)

func TestLocalPairEchoesBothDirections(t *testing.T) {
	a, b := NewLocalPair()
	defer a.Close()
	defer b.Close()

	go func() {
		io.WriteString(a, "ping")
	}()
	buf := make([]byte, 4)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want ping", buf)
	}

	go func() {
		io.WriteString(b, "pong")
	}()
	if _, err := io.ReadFull(a, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "pong" {
		t.Fatalf("got %q, want pong", buf)
	}
}
