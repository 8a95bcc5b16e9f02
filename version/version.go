// Package version exposes build metadata for the /version endpoint.
package version

import (
	"runtime"
	"runtime/debug"
)

// BuildVersion is set at build time via -ldflags; defaults to "dev"
// for local runs.
var BuildVersion = "dev"

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get reports the running build. Git metadata comes from the binary's
// embedded VCS info when present.
func Get(service string) Info {
	inf := Info{
		Service:   service,
		Version:   BuildVersion,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				inf.GitSHA = s.Value
			case "vcs.time":
				inf.BuildTime = s.Value
			}
		}
	}

	return inf
}
