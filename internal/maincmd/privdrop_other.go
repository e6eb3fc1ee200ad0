//go:build !linux || nonamespacing

package maincmd

import "github.com/oferchen/oc-rsync-sub001/internal/rsyncos"

// dropPrivileges is a no-op outside Linux (or when namespacing/privilege
// dropping was disabled at build time via the nonamespacing tag).
func dropPrivileges(osenv *rsyncos.Env) error {
	return nil
}
