// Package build exposes version metadata embedded into the binary with
// -ldflags. Development builds without ldflags fall back to placeholder
// values instead of failing.
package build

type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by -ldflags at compile time.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	info = Info{
		Name:    "chromatune",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies any ldflags-provided values into the build info.
// Must be called early in program startup.
func Initialize() {
	if buildName != "" {
		info.Name = buildName
	}
	if buildTime != "" {
		info.Time = buildTime
	}
	if buildCommit != "" {
		info.Commit = buildCommit
	}
	if buildVersion != "" {
		info.Version = buildVersion
	}
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return info
}
