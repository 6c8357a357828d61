package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Overridden at release time with -X github.com/giantswarm/chronosphere-sync/internal/version.<name>=...
var (
	release = "dev"
	commit  = ""
	date    = ""
)

// Info describes the chronosphere-sync build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build of the running binary. Commit and date fall back to the VCS stamp the Go
// toolchain embeds when they were not set at link time.
func Get() Info {
	info := Info{
		Version:   release,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.Date == "":
				info.Date = s.Value
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

// UserAgent is sent with every API request.
func (i Info) UserAgent() string {
	return fmt.Sprintf("chronosphere-sync/%s (%s)", i.Version, i.Platform)
}

func (i Info) String() string {
	return fmt.Sprintf("chronosphere-sync %s\ncommit: %s\nbuilt: %s\ngo: %s %s",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}
