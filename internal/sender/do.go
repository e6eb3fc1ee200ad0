package sender

import (
	"os"
	"path/filepath"

	"github.com/oferchen/oc-rsync-sub001/internal/delta"
	"github.com/oferchen/oc-rsync-sub001/internal/filelist"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncerr"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncstats"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncwire"
)

// Do builds the file list rooted at modulePath for the requested paths,
// transmits it, then services the generator's per-file checksum requests
// until it sends the closing -1/-1 pair (spec.md §4.1, §8.4 final stats).
func (st *Transfer) Do(crd *rsyncwire.CountingReader, cwr *rsyncwire.CountingWriter, modulePath string, paths []string, exclusionList *FilterList) (*rsyncstats.TransferStats, error) {
	entries, err := buildFileList(modulePath, paths, st.Matcher)
	if err != nil {
		return nil, err
	}

	if err := st.Conn.WriteInt32(int32(len(entries))); err != nil {
		return nil, err
	}
	enc := filelist.NewEncoder(st.Conn.Writer)
	var totalSize int64
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}

	if err := st.sendFiles(modulePath, entries); err != nil {
		return nil, err
	}

	for _, e := range entries {
		if !e.IsDir && !e.IsSymlink && !e.IsDevice {
			if fi, err := os.Stat(filepath.Join(modulePath, string(e.Path))); err == nil {
				totalSize += fi.Size()
			}
		}
	}

	if err := st.Conn.WriteInt64(crd.BytesRead); err != nil {
		return nil, err
	}
	if err := st.Conn.WriteInt64(cwr.BytesWritten); err != nil {
		return nil, err
	}
	if err := st.Conn.WriteInt64(totalSize); err != nil {
		return nil, err
	}

	// consume the receiver's closing goodbye
	if _, err := st.Conn.ReadInt32(); err != nil {
		return nil, rsyncerr.ProtocolError("reading goodbye", err)
	}

	stats := &rsyncstats.TransferStats{
		Read:    crd.BytesRead,
		Written: cwr.BytesWritten,
		Size:    totalSize,
	}
	if err := st.Errors.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// sendFiles answers the generator's idx/sums requests until the -1/-1
// sentinel pair GenerateFiles emits.
func (st *Transfer) sendFiles(root string, entries []*filelist.Entry) error {
	phase := 0
	for {
		idx, err := st.Conn.ReadInt32()
		if err != nil {
			return rsyncerr.ProtocolError("reading file index", err)
		}
		if idx == -1 {
			if phase == 0 {
				phase++
				continue
			}
			break
		}
		if err := st.sendFile1(root, entries[idx]); err != nil {
			return err
		}
	}
	return nil
}

func (st *Transfer) sendFile1(root string, f *filelist.Entry) error {
	blockSize, sums, err := delta.ReadSums(st.Conn.Reader)
	if err != nil {
		return err
	}
	index := delta.IndexFromSums(blockSize, sums, 0)

	local := filepath.Join(root, string(f.Path))
	file, err := os.Open(local)
	if err != nil {
		// Keep the wire in sync (the generator is still waiting for an op
		// stream for this index) and record the failure instead of aborting
		// the whole transfer over one unreadable file.
		st.Errors.Add(rsyncerr.IOError("open "+local, err))
		return delta.WriteOps(st.Conn.Writer, nil, st.Codec)
	}
	defer file.Close()

	scanner := delta.NewScanner(index, blockSize, st.algo(), uint32(st.Seed))
	var ops []delta.Op
	if err := scanner.Scan(file, func(op delta.Op) error {
		ops = append(ops, op)
		return nil
	}); err != nil {
		return err
	}
	return delta.WriteOps(st.Conn.Writer, ops, st.Codec)
}
