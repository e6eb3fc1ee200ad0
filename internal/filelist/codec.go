package filelist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

func timeFromUnix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// idTable is the per-stream side table described in §4.3: the first 255
// distinct ids encountered get a 1-byte index; beyond that (or for the
// 256th+ distinct value) the sentinel 0xFF precedes the raw value.
type idTable struct {
	ids []uint32
	idx map[uint32]byte
}

func newIDTable() *idTable {
	return &idTable{idx: make(map[uint32]byte)}
}

const idSentinel = 0xFF

func (t *idTable) encode(w io.Writer, id uint32) error {
	if b, ok := t.idx[id]; ok {
		_, err := w.Write([]byte{b})
		return err
	}
	if len(t.ids) >= idSentinel {
		if _, err := w.Write([]byte{idSentinel}); err != nil {
			return err
		}
		return writeU32(w, id)
	}
	b := byte(len(t.ids))
	t.ids = append(t.ids, id)
	t.idx[id] = b
	if _, err := w.Write([]byte{idSentinel}); err != nil {
		return err
	}
	return writeU32(w, id)
}

func (t *idTable) decode(r io.Reader) (uint32, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	if b[0] != idSentinel {
		i := int(b[0])
		if i >= len(t.ids) {
			return 0, fmt.Errorf("filelist: bad id index %d", i)
		}
		return t.ids[i], nil
	}
	id, err := readU32(r)
	if err != nil {
		return 0, err
	}
	t.ids = append(t.ids, id)
	return id, nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeI64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

func readI64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Encoder serializes a stream of Entry values in visited order, maintaining
// the previous path (for prefix compression) and the uid/gid tables across
// calls, per §4.3.
type Encoder struct {
	w        io.Writer
	prevPath []byte
	uids     *idTable
	gids     *idTable
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, uids: newIDTable(), gids: newIDTable()}
}

// Encode writes one entry. Path common-prefix and suffix lengths are
// computed against the previously encoded entry's path.
func (e *Encoder) Encode(ent *Entry) error {
	common := commonPrefixLen(e.prevPath, ent.Path)
	if common > 255 {
		common = 255
	}
	suffix := ent.Path[common:]
	if len(suffix) > 255 {
		return fmt.Errorf("filelist: path suffix %d exceeds 255 bytes", len(suffix))
	}

	if err := writeByte(e.w, byte(common)); err != nil {
		return err
	}
	if err := writeByte(e.w, byte(len(suffix))); err != nil {
		return err
	}
	if _, err := e.w.Write(suffix); err != nil {
		return err
	}

	if err := writeByte(e.w, modeFlags(ent)); err != nil {
		return err
	}
	if err := writeU32(e.w, ent.Mode); err != nil {
		return err
	}
	if err := writeI64(e.w, ent.Mtime.Unix()); err != nil {
		return err
	}

	if err := e.uids.encode(e.w, ent.UID); err != nil {
		return err
	}
	if err := e.gids.encode(e.w, ent.GID); err != nil {
		return err
	}

	if err := writeByte(e.w, 0); err != nil { // group_tag: no secondary group
		return err
	}

	if len(ent.Xattrs) > 255 {
		return fmt.Errorf("filelist: %d xattrs exceeds 255", len(ent.Xattrs))
	}
	if err := writeByte(e.w, byte(len(ent.Xattrs))); err != nil {
		return err
	}
	for _, x := range ent.Xattrs {
		if len(x.Name) > 255 {
			return fmt.Errorf("filelist: xattr name %q exceeds 255 bytes", x.Name)
		}
		if err := writeByte(e.w, byte(len(x.Name))); err != nil {
			return err
		}
		if _, err := io.WriteString(e.w, x.Name); err != nil {
			return err
		}
		if err := writeU32(e.w, uint32(len(x.Value))); err != nil {
			return err
		}
		if _, err := e.w.Write(x.Value); err != nil {
			return err
		}
	}

	if err := writeU32(e.w, uint32(len(ent.ACL))); err != nil {
		return err
	}
	if _, err := e.w.Write(ent.ACL); err != nil {
		return err
	}
	if err := writeU32(e.w, uint32(len(ent.DefaultACL))); err != nil {
		return err
	}
	if _, err := e.w.Write(ent.DefaultACL); err != nil {
		return err
	}

	e.prevPath = append(e.prevPath[:0], ent.Path...)
	return nil
}

// modeFlags packs the boolean entry classifiers (dir/symlink/device) that
// the explicit byte layout of §4.3 leaves implicit; bit 0 = dir, bit 1 =
// symlink, bit 2 = device.
func modeFlags(ent *Entry) byte {
	var b byte
	if ent.IsDir {
		b |= 0x01
	}
	if ent.IsSymlink {
		b |= 0x02
	}
	if ent.IsDevice {
		b |= 0x04
	}
	return b
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// ShortReadError wraps an underlying read failure that truncated a
// file-list entry mid-record (§4.3 "Short").
type ShortReadError struct{ Err error }

func (e *ShortReadError) Error() string { return fmt.Sprintf("filelist: short read: %v", e.Err) }
func (e *ShortReadError) Unwrap() error { return e.Err }

// Decoder is the mirror of Encoder: it reconstructs Entry values from a
// byte stream written by Encoder, maintaining the same prefix and id-table
// state.
type Decoder struct {
	r        io.Reader
	prevPath []byte
	uids     *idTable
	gids     *idTable
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, uids: newIDTable(), gids: newIDTable()}
}

// Decode reads one entry, or returns io.EOF if the stream ends cleanly
// before a new record (i.e. at a record boundary).
func (d *Decoder) Decode() (*Entry, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(d.r, hdr[:1]); err != nil {
		return nil, err // clean EOF at a record boundary
	}
	if _, err := io.ReadFull(d.r, hdr[1:2]); err != nil {
		return nil, &ShortReadError{Err: err}
	}
	common, suffixLen := int(hdr[0]), int(hdr[1])
	if common > len(d.prevPath) {
		return nil, &ShortReadError{Err: fmt.Errorf("common_prefix_len %d exceeds previous path length %d", common, len(d.prevPath))}
	}
	suffix := make([]byte, suffixLen)
	if _, err := io.ReadFull(d.r, suffix); err != nil {
		return nil, &ShortReadError{Err: err}
	}
	path := append(append([]byte(nil), d.prevPath[:common]...), suffix...)

	flags, err := d.readByte()
	if err != nil {
		return nil, &ShortReadError{Err: err}
	}
	mode, err := readU32(d.r)
	if err != nil {
		return nil, &ShortReadError{Err: err}
	}
	mtimeUnix, err := readI64(d.r)
	if err != nil {
		return nil, &ShortReadError{Err: err}
	}

	uid, err := d.uids.decode(d.r)
	if err != nil {
		return nil, fmt.Errorf("filelist: BadUid: %w", err)
	}
	gid, err := d.gids.decode(d.r)
	if err != nil {
		return nil, fmt.Errorf("filelist: BadGid: %w", err)
	}

	groupTag, err := d.readByte()
	if err != nil {
		return nil, &ShortReadError{Err: err}
	}
	if groupTag == 1 {
		if _, err := readU32(d.r); err != nil {
			return nil, &ShortReadError{Err: err}
		}
	}

	xattrCount, err := d.readByte()
	if err != nil {
		return nil, &ShortReadError{Err: err}
	}
	xattrs := make([]Xattr, 0, xattrCount)
	for i := 0; i < int(xattrCount); i++ {
		nameLen, err := d.readByte()
		if err != nil {
			return nil, &ShortReadError{Err: err}
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(d.r, name); err != nil {
			return nil, &ShortReadError{Err: err}
		}
		valLen, err := readU32(d.r)
		if err != nil {
			return nil, &ShortReadError{Err: err}
		}
		val := make([]byte, valLen)
		if _, err := io.ReadFull(d.r, val); err != nil {
			return nil, &ShortReadError{Err: err}
		}
		xattrs = append(xattrs, Xattr{Name: string(name), Value: val})
	}

	acl, err := readBlob(d.r)
	if err != nil {
		return nil, err
	}
	defaultACL, err := readBlob(d.r)
	if err != nil {
		return nil, err
	}

	ent := &Entry{
		Path:       path,
		UID:        uid,
		GID:        gid,
		Mode:       mode,
		Mtime:      timeFromUnix(mtimeUnix),
		Xattrs:     xattrs,
		ACL:        acl,
		DefaultACL: defaultACL,
		IsDir:      flags&0x01 != 0,
		IsSymlink:  flags&0x02 != 0,
		IsDevice:   flags&0x04 != 0,
	}
	d.prevPath = path
	return ent, nil
}

func (d *Decoder) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readBlob(r io.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, &ShortReadError{Err: err}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &ShortReadError{Err: err}
	}
	if n == 0 {
		return nil, nil
	}
	return buf, nil
}

// EncodeAll is a convenience wrapper encoding a whole slice to a buffer.
func EncodeAll(entries []*Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeAll decodes entries until EOF.
func DecodeAll(r io.Reader) ([]*Entry, error) {
	dec := NewDecoder(r)
	var out []*Entry
	for {
		ent, err := dec.Decode()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, ent)
	}
}
