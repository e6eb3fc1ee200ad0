package filelist

import (
	"bytes"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	entries := []*Entry{
		{Path: []byte("a/b/c.txt"), UID: 1000, GID: 1000, Mode: 0o644, Mtime: now},
		{Path: []byte("a/b/d.txt"), UID: 1000, GID: 1000, Mode: 0o644, Mtime: now,
			Xattrs: []Xattr{{Name: "user.foo", Value: []byte("bar")}}},
		{Path: []byte("a/e/f.txt"), UID: 2000, GID: 2000, Mode: 0o600, Mtime: now, IsDir: true},
		{Path: []byte("a/e/f.txt/g.txt"), UID: 1000, GID: 2000, Mode: 0o640, Mtime: now,
			ACL: []byte("acl-bytes"), DefaultACL: []byte("default-acl-bytes")},
	}

	encoded, err := EncodeAll(entries)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAll(bytes.NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, want := range entries {
		g := got[i]
		if !bytes.Equal(g.Path, want.Path) {
			t.Errorf("entry %d: path = %q, want %q", i, g.Path, want.Path)
		}
		if g.UID != want.UID || g.GID != want.GID || g.Mode != want.Mode {
			t.Errorf("entry %d: uid/gid/mode = %d/%d/%o, want %d/%d/%o", i, g.UID, g.GID, g.Mode, want.UID, want.GID, want.Mode)
		}
		if !g.Mtime.Equal(want.Mtime) {
			t.Errorf("entry %d: mtime = %v, want %v", i, g.Mtime, want.Mtime)
		}
		if len(g.Xattrs) != len(want.Xattrs) {
			t.Errorf("entry %d: xattrs = %v, want %v", i, g.Xattrs, want.Xattrs)
		}
	}
}

func TestIDTableReusesIndices(t *testing.T) {
	var buf bytes.Buffer
	tbl := newIDTable()
	for _, id := range []uint32{42, 42, 7, 42} {
		if err := tbl.encode(&buf, id); err != nil {
			t.Fatal(err)
		}
	}
	// 42 is assigned index 0 on first sight, reused (1 byte) thereafter; 7
	// gets index 1. Expect: [0xFF,42(LE4)] [0x00] [0xFF,7(LE4)] [0x00]
	want := []byte{0xFF, 42, 0, 0, 0, 0x00, 0xFF, 7, 0, 0, 0, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}
}
