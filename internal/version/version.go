// Package version reports build information for markupcheck.
//
// Values are injected at build time:
//
//	-ldflags "-X markupcheck/internal/version.version=v1.0.0 -X markupcheck/internal/version.commit=abc123 -X markupcheck/internal/version.buildTime=2025-01-01T00:00:00Z"
//
// When a value was not injected, the VCS stamp embedded by the Go toolchain is
// used instead.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name of the application displayed in version output.
const ApplicationName = "markupcheck"

// Default values used when version information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

const shortCommitLength = 12

// Info is the build information of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information, falling back to the VCS stamp and then
// to the defaults.
func Get() Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.Commit == "" {
		info.Commit = DefaultCommit
	}
	if len(info.Commit) > shortCommitLength {
		info.Commit = info.Commit[:shortCommitLength]
	}
	if info.BuildTime == "" {
		info.BuildTime = DefaultBuildTime
	}
	return info
}

// String is the one-line form used in report footers.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s)", ApplicationName, i.Version, i.Commit)
}

// FormatFull returns a multi-line output with complete version information.
func (i Info) FormatFull() string {
	var b strings.Builder
	b.WriteString(ApplicationName + "\n")
	if i.IsDevelopment() {
		fmt.Fprintf(&b, "Version: %s (development build)\n", i.Version)
	} else {
		fmt.Fprintf(&b, "Version: %s\n", i.Version)
	}
	fmt.Fprintf(&b, "Commit: %s\n", i.Commit)
	built := i.BuildTime
	if ts := i.BuildTimestamp(); !ts.IsZero() {
		built = ts.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(&b, "Built: %s\n", built)
	fmt.Fprintf(&b, "Go: %s\n", i.GoVersion)
	return b.String()
}

// Write prints the version only when short is set, else the full form.
func (i Info) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, i.Version)
		return err
	}
	_, err := io.WriteString(w, i.FormatFull())
	return err
}

// IsDevelopment returns true if the version indicates a development build.
func (i Info) IsDevelopment() bool {
	return i.Version == DefaultVersion
}

// BuildTimestamp parses the build time. It returns the zero time when the
// build time is unknown or malformed.
func (i Info) BuildTimestamp() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, i.BuildTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SetBuildVars sets the build-time variables. Intended for tests.
func SetBuildVars(ver, com, bt string) {
	version = ver
	commit = com
	buildTime = bt
}
