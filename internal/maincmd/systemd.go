package maincmd

import (
	"net"

	"github.com/coreos/go-systemd/v22/activation"
)

// systemdListeners returns the listeners passed down by systemd socket
// activation (LISTEN_FDS), if any. It returns an empty slice, not an error,
// when the process was not started under socket activation.
func systemdListeners() ([]net.Listener, error) {
	return activation.Listeners()
}
