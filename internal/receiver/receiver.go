package receiver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oferchen/oc-rsync-sub001/internal/delta"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncerr"
)

// RecvFiles reads the generator's basis-sums requests and, for each index
// the generator names, reads back the sender's resulting op stream and
// applies it (spec.md §4.1 steps 3-4). The -1/-1 sentinel pair mirrors the
// two -1 values GenerateFiles writes after its single pass over the regular
// files; no redo pass runs between them.
func (rt *Transfer) RecvFiles(fileList []*File) error {
	phase := 0
	for {
		idx, err := rt.Conn.ReadInt32()
		if err != nil {
			return rsyncerr.ProtocolError("reading file index", err)
		}
		if idx == -1 {
			if phase == 0 {
				phase++
				if rt.Opts.Verbose {
					rt.Logger.Printf("recvFiles phase=%d", phase)
				}
				continue
			}
			break
		}
		if rt.Opts.Verbose {
			rt.Logger.Printf("receiving file idx=%d: %s", idx, fileName(fileList[idx]))
		}
		if err := rt.recvFile1(fileList[idx]); err != nil {
			return err
		}
	}
	if rt.Opts.Verbose {
		rt.Logger.Printf("recvFiles finished")
	}
	return nil
}

func (rt *Transfer) recvFile1(f *File) error {
	if rt.Opts.DryRun {
		if !rt.Opts.Server {
			fmt.Fprintln(rt.Env.Stdout, fileName(f))
		}
		return nil
	}

	localFile, err := rt.openLocalFile(f)
	if err != nil && !os.IsNotExist(err) {
		rt.recordError(rsyncerr.IOError("opening basis "+fileName(f), err))
	}

	var basis delta.Basis
	if localFile != nil {
		defer localFile.Close()
		st, err := localFile.Stat()
		if err != nil {
			return err
		}
		basis = &fileBasis{f: localFile, size: st.Size()}
	} else {
		basis = emptyBasis{}
	}

	return rt.receiveData(f, basis)
}

func (rt *Transfer) openLocalFile(f *File) (*os.File, error) {
	in, err := rt.DestRoot.Open(fileName(f))
	if err != nil {
		return nil, err
	}

	st, err := in.Stat()
	if err != nil {
		in.Close()
		return nil, err
	}

	if st.IsDir() {
		in.Close()
		return nil, fmt.Errorf("%s is a directory", filepath.Join(rt.Dest, fileName(f)))
	}

	if !st.Mode().IsRegular() {
		in.Close()
		return nil, nil
	}

	if !rt.Opts.PreservePerms {
		// If the file exists already and we are not preserving permissions,
		// act as though the remote sent us the existing permissions.
		f.Mode = uint32(st.Mode().Perm())
	}

	return in, nil
}

// fileBasis adapts an *os.File to delta.Basis.
type fileBasis struct {
	f    *os.File
	size int64
}

func (b *fileBasis) ReadAt(p []byte, off int64) (int, error) { return b.f.ReadAt(p, off) }
func (b *fileBasis) Size() int64                             { return b.size }

// emptyBasis is used when the destination has no existing file to diff
// against: every op the sender produces will be a literal Data op.
type emptyBasis struct{}

func (emptyBasis) ReadAt(p []byte, off int64) (int, error) { return 0, fmt.Errorf("delta: empty basis has no data") }
func (emptyBasis) Size() int64                             { return 0 }

// receiveData applies the sender's op stream for f, read from the
// connection concurrently with Apply consuming it, then finalizes the
// pending file and restores metadata (spec.md §4.4 "Apply", §4.7).
func (rt *Transfer) receiveData(f *File, basis delta.Basis) error {
	local := filepath.Join(rt.Dest, fileName(f))
	rt.Logger.Printf("creating %s", local)
	out, err := newPendingFile(local)
	if err != nil {
		// The sender still sends an op stream for this index regardless of
		// whether we could create the destination file; drain it so the
		// wire stays in sync with the next file's idx, then move on.
		rt.recordError(rsyncerr.IOError("creating "+local, err))
		return delta.ReadOps(rt.Conn.Reader, rt.Codec, func(delta.Op) error { return nil })
	}
	defer out.Cleanup()

	ops := make(chan delta.Op, 32)
	errs := make(chan error, 1)
	go func() {
		err := delta.ReadOps(rt.Conn.Reader, rt.Codec, func(op delta.Op) error {
			ops <- op
			return nil
		})
		close(ops)
		errs <- err
		close(errs)
	}()

	if err := delta.Apply(rt.Opts.ApplyMode, basis, out, ops, errs); err != nil {
		return err
	}

	if err := out.CloseAtomicallyReplace(); err != nil {
		return err
	}

	return rt.setPerms(f)
}
