// Package rsyncwire implements the framed transport primitives of spec.md
// §3/§6.1/§8.1: integer encoding, the Frame header, byte counters, and the
// multiplexing reader/writer that interleave data frames with out-of-band
// info/error/keepalive frames on a single byte stream.
package rsyncwire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/oferchen/oc-rsync-sub001"
)

// Frame is the unit of the multiplexed wire protocol (spec.md §3 Frame):
// a small fixed header followed by a payload of at most MaxFrameLen bytes.
type Frame struct {
	Channel uint16
	Tag     uint8
	Msg     uint8
	Payload []byte
}

const frameHeaderLen = 2 + 1 + 1 + 4 // channel + tag + msg + len

// WriteTo writes the frame header and payload to w.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	if len(f.Payload) > rsync.MaxFrameLen {
		return 0, fmt.Errorf("rsyncwire: frame payload %d exceeds MaxFrameLen", len(f.Payload))
	}
	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint16(hdr[0:2], f.Channel)
	hdr[2] = f.Tag
	hdr[3] = f.Msg
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(f.Payload)))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(f.Payload)
	return int64(n + m), err
}

// ReadFrame reads one frame from r, rejecting any payload length above
// MaxFrameLen as a protocol violation.
func ReadFrame(r io.Reader) (*Frame, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	f := &Frame{
		Channel: binary.BigEndian.Uint16(hdr[0:2]),
		Tag:     hdr[2],
		Msg:     hdr[3],
	}
	n := binary.BigEndian.Uint32(hdr[4:8])
	if n > rsync.MaxFrameLen {
		return nil, fmt.Errorf("rsyncwire: frame length %d exceeds MaxFrameLen", n)
	}
	if n > 0 {
		f.Payload = make([]byte, n)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Conn bundles a peer's read and write halves along with the integer-codec
// helpers every higher-level package needs (version/capability exchange,
// checksum-seed exchange, file-list length-prefixed fields).
type Conn struct {
	Reader io.Reader
	Writer io.Writer
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{Reader: r, Writer: w}
}

func (c *Conn) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c.Reader, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Conn) WriteByte(b byte) error {
	_, err := c.Writer.Write([]byte{b})
	return err
}

func (c *Conn) ReadInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(c.Reader, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func (c *Conn) WriteInt32(v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := c.Writer.Write(b[:])
	return err
}

func (c *Conn) ReadUint32() (uint32, error) {
	v, err := c.ReadInt32()
	return uint32(v), err
}

func (c *Conn) WriteUint32(v uint32) error {
	return c.WriteInt32(int32(v))
}

func (c *Conn) ReadInt64() (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(c.Reader, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func (c *Conn) WriteInt64(v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	_, err := c.Writer.Write(b[:])
	return err
}

// ReadN reads exactly n bytes.
func (c *Conn) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadLine reads up to and including the next '\n', used for the
// line-oriented daemon handshake (§6.2). The trailing '\n' is stripped.
func (c *Conn) ReadLine() (string, error) {
	br, ok := c.Reader.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(c.Reader)
		c.Reader = br
	}
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line, nil
}

func (c *Conn) WriteLine(s string) error {
	_, err := io.WriteString(c.Writer, s+"\n")
	return err
}

// CountingReader wraps an io.Reader, tracking the total bytes read.
type CountingReader struct {
	R         io.Reader
	BytesRead int64
}

func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	cr.BytesRead += int64(n)
	return n, err
}

// CountingWriter wraps an io.Writer, tracking the total bytes written.
type CountingWriter struct {
	W            io.Writer
	BytesWritten int64
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.BytesWritten += int64(n)
	return n, err
}

// CounterPair wraps r and w in CountingReader/CountingWriter so a caller can
// read off the final Read/Written totals for Stats (§1 Stats, §8.4).
func CounterPair(r io.Reader, w io.Writer) (*CountingReader, *CountingWriter) {
	return &CountingReader{R: r}, &CountingWriter{W: w}
}

// MultiplexWriter implements the sender side of the multiplexed channel
// (§3, §8.1): every Write call is framed as a channel-0 Data message, chunked
// to MaxFrameLen. Out-of-band frames (Info/Warning/Error/KeepAlive) are sent
// with SendMsg instead of going through Write.
type MultiplexWriter struct {
	Writer io.Writer
}

func (m *MultiplexWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > rsync.MaxFrameLen {
			chunk = chunk[:rsync.MaxFrameLen]
		}
		f := Frame{Tag: rsync.MsgData, Msg: rsync.MsgData, Payload: chunk}
		if _, err := f.WriteTo(m.Writer); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// SendMsg writes an out-of-band frame (error/info/warning/keepalive) on the
// multiplexed channel, bypassing the Data-framing of Write.
func (m *MultiplexWriter) SendMsg(msg uint8, payload []byte) error {
	f := Frame{Tag: msg, Msg: msg, Payload: payload}
	_, err := f.WriteTo(m.Writer)
	return err
}

// WriteMsg is an alias for SendMsg, matching the naming callers reach for
// when treating the multiplexer as a generic out-of-band message sink.
func (m *MultiplexWriter) WriteMsg(msg uint8, payload []byte) error {
	return m.SendMsg(msg, payload)
}

// OnOOB, when set, is invoked for every non-Data frame MultiplexReader
// demultiplexes (Info/Warning/Error/MotdLine/KeepAlive), before Read returns
// control to its caller.
type OOBHandler func(msg uint8, payload []byte)

// MultiplexReader implements the receive side of the multiplexed channel:
// it reads frames from the underlying stream, dispatches out-of-band frames
// to OnOOB, and returns only Data payloads from Read.
type MultiplexReader struct {
	Reader io.Reader
	OnOOB  OOBHandler

	buf []byte
}

func (m *MultiplexReader) Read(p []byte) (int, error) {
	for len(m.buf) == 0 {
		f, err := ReadFrame(m.Reader)
		if err != nil {
			return 0, err
		}
		if f.Msg == rsync.MsgDone {
			return 0, io.EOF
		}
		if f.Msg != rsync.MsgData {
			if m.OnOOB != nil {
				m.OnOOB(f.Msg, f.Payload)
			}
			continue
		}
		m.buf = f.Payload
	}
	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}
