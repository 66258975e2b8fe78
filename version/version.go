package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Product is the name used in user agents and Kafka client ids.
const Product = "audiotranscriber"

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

// Info is the build description served by /version and `audiotranscriber version`.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
	BuildTime string    `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date,omitzero"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// Get assembles the build description from link-time values and build info.
func Get() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.GoVersion == "" {
		info.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = shortCommit(s.Value)
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuildDate = t
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// Short returns "<version>[-<commit>][-dirty]".
func Short() string {
	info := Get()
	if info.GitCommit == "" {
		return info.Version
	}
	s := info.Version + "-" + info.GitCommit
	if info.IsDirty {
		s += "-dirty"
	}
	return s
}

// Full returns the short form plus a non-default branch and the build date.
func Full() string {
	info := Get()
	parts := []string{info.Version}
	if info.GitCommit != "" {
		parts = append(parts, info.GitCommit)
	}
	if info.GitBranch != "" && info.GitBranch != "main" && info.GitBranch != "master" {
		parts = append(parts, info.GitBranch)
	}
	if info.IsDirty {
		parts = append(parts, "dirty")
	}
	s := strings.Join(parts, "-")
	if !info.BuildDate.IsZero() {
		s += fmt.Sprintf(" (built %s)", info.BuildDate.UTC().Format(time.RFC3339))
	}
	return s
}

// UserAgent identifies this build to remote engines.
func UserAgent() string {
	return Product + "/" + Short()
}
