// Package buildinfo holds static version information and debug-mode
// detection for the runtime, grounded on the teacher's pkg/mutagen
// version/debug handling but trimmed of its wire-protocol version exchange
// (there is no network handshake in this core).
package buildinfo

import (
	"fmt"
	"os"
)

const (
	// VersionMajor is the current major version.
	VersionMajor = 0
	// VersionMinor is the current minor version.
	VersionMinor = 1
	// VersionPatch is the current patch version.
	VersionPatch = 0
)

// Version is the human-readable version string.
var Version string

// DebugEnabled controls whether or not debug-level logging is enabled. It is
// set automatically based on the WEBRUNTIME_DEBUG environment variable.
var DebugEnabled bool

func init() {
	Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
	DebugEnabled = os.Getenv("WEBRUNTIME_DEBUG") == "1"
}
