package version

import "runtime/debug"

// Build-time parameters set via -ldflags

var (
	Version = "devel"
	Commit  = "unknown"
)

// A user may install juggy using `go install github.com/juggyai/juggy@latest`.
// without -ldflags, in which case the version above is unset. As a workaround
// we use the embedded build version that *is* set when using `go install`.
func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "devel" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && Commit == "unknown" {
			Commit = s.Value
		}
	}
}
