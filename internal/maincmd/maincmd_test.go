package maincmd

import (
	"testing"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncdconfig"
	"github.com/oferchen/oc-rsync-sub001/rsyncd"
	"github.com/google/go-cmp/cmp"
)

func TestRsyncdModules(t *testing.T) {
	in := []rsyncdconfig.Module{
		{
			Name:       "pub",
			Path:       "/srv/pub",
			Writable:   false,
			HostsAllow: []string{"10.0.0.0/8"},
			HostsDeny:  []string{"0.0.0.0/0"},
		},
	}
	got := rsyncdModules(in)
	want := []rsyncd.Module{
		{
			Name:     "pub",
			Path:     "/srv/pub",
			Writable: false,
			ACL:      []string{"allow 10.0.0.0/8", "deny 0.0.0.0/0"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rsyncdModules: unexpected result: diff (-want +got):\n%s", diff)
	}
}
