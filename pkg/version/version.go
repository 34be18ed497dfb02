// Package version records build metadata for the relfang binary.
//
// Version, Commit and Date are set by the linker in release builds via
// -ldflags "-X github.com/Sumatoshi-tech/relfang/pkg/version.Version=...".
// Development builds fall back to information the Go toolchain embeds.
package version

import "runtime/debug"

// Version is the semantic version of the binary.
var Version = "dev"

// Commit is the git revision the binary was built from.
var Commit = "unknown"

// Date is the build timestamp in RFC 3339 form.
var Date = "unknown"

// InitBinaryVersion fills unset build metadata from the build info
// embedded in the binary. Values already set by the linker win.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}
