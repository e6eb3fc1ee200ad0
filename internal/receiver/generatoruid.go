package receiver

import (
	"os"
	"os/user"
	"strconv"

	"github.com/oferchen/oc-rsync-sub001/internal/xfs"
)

var amRoot = os.Getuid() == 0

var inGroup = func() map[uint32]bool {
	m := make(map[uint32]bool)
	u, err := user.Current()
	if err != nil {
		return m
	}
	gids, err := u.GroupIds()
	if err != nil {
		return m
	}
	for _, gidString := range gids {
		gid64, err := strconv.ParseInt(gidString, 0, 64)
		if err != nil {
			return m
		}
		m[uint32(gid64)] = true
	}
	return m
}()

// setUidGid restores ownership, subject to the same policy real rsync
// applies: uid changes require root, gid changes require root or group
// membership (spec.md §4.7).
func (rt *Transfer) setUidGid(f *File, local string, adapter xfs.Adapter) error {
	st, err := adapter.StatNofollow(local)
	if err != nil {
		return err
	}

	changeUid := rt.Opts.PreserveUid &&
		amRoot &&
		st.UID != f.UID

	changeGid := rt.Opts.PreserveGid &&
		(amRoot || inGroup[f.GID]) &&
		st.GID != f.GID

	if !changeUid && !changeGid {
		return nil
	}

	uid, gid := st.UID, st.GID
	var uidp, gidp *uint32
	if changeUid {
		uid = f.UID
		uidp = &uid
	}
	if changeGid {
		gid = f.GID
		gidp = &gid
	}
	return adapter.ChownNofollow(local, uidp, gidp)
}
