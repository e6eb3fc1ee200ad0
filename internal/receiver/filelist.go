package receiver

import (
	"github.com/oferchen/oc-rsync-sub001/internal/filelist"
)

// File is the per-path record the generator/receiver pipeline operates on.
type File = filelist.Entry

func fileName(f *File) string { return string(f.Path) }

// ReceiveFileList reads the count-prefixed, prefix-compressed file list sent
// by the peer (spec.md §4.1 step 2, §4.3).
func (rt *Transfer) ReceiveFileList() ([]*File, error) {
	count, err := rt.Conn.ReadInt32()
	if err != nil {
		return nil, err
	}
	dec := filelist.NewDecoder(rt.Conn.Reader)
	list := make([]*File, 0, count)
	for i := int32(0); i < count; i++ {
		ent, err := dec.Decode()
		if err != nil {
			return nil, err
		}
		list = append(list, ent)
	}
	return list, nil
}

// findInFileList reports whether name is present in fileList, used by
// deleteFiles to decide which local paths have no remote counterpart left.
func findInFileList(fileList []*File, name string) bool {
	for _, f := range fileList {
		if fileName(f) == name {
			return true
		}
	}
	return false
}
