package receiver

import (
	"io"
	"os"
	"path/filepath"

	"github.com/oferchen/oc-rsync-sub001/internal/checksum"
	"github.com/oferchen/oc-rsync-sub001/internal/delta"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncerr"
)

// GenerateFiles is the destination-side half of the checksum exchange
// (spec.md §4.1 step 2, §4.4 step 1): for every plain file in fileList it
// computes a basis block-checksum list from whatever local file already
// exists at that path (or an empty one, if none does) and writes it to the
// sender. It finishes with the -1/-1 sentinel pair RecvFiles expects.
func (rt *Transfer) GenerateFiles(fileList []*File) error {
	for idx, f := range fileList {
		if f.IsDir || f.IsSymlink || f.IsDevice {
			continue
		}
		if err := rt.generateFile1(int32(idx), f); err != nil {
			return err
		}
	}
	if err := rt.Conn.WriteInt32(-1); err != nil {
		return err
	}
	if err := rt.Conn.WriteInt32(-1); err != nil {
		return err
	}
	return nil
}

func (rt *Transfer) generateFile1(idx int32, f *File) error {
	local := filepath.Join(rt.Dest, fileName(f))
	lf, err := os.Open(local)
	if err != nil && !os.IsNotExist(err) {
		// Treat an unreadable basis the same as a missing one: the sender
		// will transfer the whole file as literal data. Keep going instead
		// of failing the entire transfer over one file's permissions.
		rt.recordError(rsyncerr.IOError("open basis "+local, err))
	}
	var basisReader io.Reader = emptyReader{}
	if lf != nil {
		defer lf.Close()
		basisReader = lf
	}

	algo := rt.Opts.ChecksumAlgo
	if algo == "" {
		algo = checksum.DefaultPreference[0]
	}
	blockSize := blockSizeOrDefault(rt.Opts.BlockSize)

	sums, strongLen, err := delta.ComputeSums(basisReader, blockSize, algo, uint32(rt.Seed))
	if err != nil {
		return err
	}

	if err := rt.Conn.WriteInt32(idx); err != nil {
		return err
	}
	return delta.WriteSums(rt.Conn.Writer, blockSize, strongLen, sums)
}

// emptyReader is an always-empty io.Reader, standing in for a basis when
// the destination has no existing file at this path.
type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, io.EOF }
