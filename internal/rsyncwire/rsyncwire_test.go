package rsyncwire

import (
	"bytes"
	"io"
	"testing"

	"github.com/oferchen/oc-rsync-sub001"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := &Frame{Channel: 3, Tag: rsync.MsgData, Msg: rsync.MsgData, Payload: []byte("hello")}
	if _, err := want.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Channel != want.Channel || got.Msg != want.Msg || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMultiplexRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	mw := &MultiplexWriter{Writer: &buf}
	if _, err := mw.Write([]byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := mw.SendMsg(rsync.MsgInfo, []byte("note")); err != nil {
		t.Fatal(err)
	}
	if _, err := mw.Write([]byte("second")); err != nil {
		t.Fatal(err)
	}
	if err := mw.SendMsg(rsync.MsgDone, nil); err != nil {
		t.Fatal(err)
	}

	var oob [][]byte
	mr := &MultiplexReader{Reader: &buf, OnOOB: func(msg uint8, payload []byte) {
		oob = append(oob, append([]byte(nil), payload...))
	}}

	data, err := io.ReadAll(mr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "firstsecond" {
		t.Fatalf("got %q", data)
	}
	if len(oob) != 1 || string(oob[0]) != "note" {
		t.Fatalf("got oob %q", oob)
	}
}
