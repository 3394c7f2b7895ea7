// Package version reports how the running binary was built.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/tabherd"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/tabherd/internal/version.buildVersion=...".
var buildVersion = ""

// Build summarizes the running binary.
type Build struct {
	Module   string
	Version  string
	Revision string
	Time     time.Time
	Dirty    bool
}

// Read collects the linker-provided version and the embedded build info.
func Read() Build {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(buildVersion, info)
}

// Describe renders the version line printed by the CLI and logged at host startup.
func Describe() string {
	return Read().String()
}

// String renders "<module> <version>", marking builds from a modified tree.
func (b Build) String() string {
	v := b.Version
	if b.Dirty && !strings.HasSuffix(v, "+dirty") {
		v += "+dirty"
	}
	return b.Module + " " + v
}

func fromBuildInfo(linked string, info *debug.BuildInfo) Build {
	build := Build{Module: defaultModule, Version: strings.TrimSpace(linked)}
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			build.Module = path
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				build.Revision = setting.Value
			case "vcs.time":
				build.Time, _ = time.Parse(time.RFC3339, setting.Value)
			case "vcs.modified":
				build.Dirty = setting.Value == "true"
			}
		}
		if v := strings.TrimSpace(info.Main.Version); build.Version == "" && v != "" && v != "(devel)" {
			build.Version = v
		}
	}
	if build.Version == "" && build.Revision != "" && !build.Time.IsZero() {
		rev := build.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		build.Version = "v0.0.0-" + build.Time.UTC().Format("20060102150405") + "-" + rev
	}
	if build.Version == "" {
		build.Version = unknownVersion
	}
	return build
}
