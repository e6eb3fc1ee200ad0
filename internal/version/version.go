// Package version exposes the build version string printed by --version and
// at the top of the --help and --daemon --help output.
package version

// version is overridden at link time with -ldflags "-X ...version.version=...".
var version = "devel"

// Read returns the version string to print/report.
func Read() string {
	return version
}
