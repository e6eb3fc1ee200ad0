//go:build !linux

package maincmd

import (
	"errors"

	"github.com/oferchen/oc-rsync-sub001/internal/rsyncdconfig"
	"github.com/oferchen/oc-rsync-sub001/internal/rsyncos"
)

var errIsParent = errors.New("namespace: re-exec handled by child")

// namespace is a no-op outside Linux; mount namespaces are a Linux-only
// concept.
func namespace(osenv *rsyncos.Env, modules []rsyncdconfig.Module, listenAddr string) error {
	return nil
}
