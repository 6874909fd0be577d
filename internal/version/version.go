// Package version carries the build identity stamped into deckd binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Version and Commit are stamped by release builds:
//
//	go build -ldflags="-X github.com/muurk/deckd/internal/version.Version=v0.4.0 \
//	                   -X github.com/muurk/deckd/internal/version.Commit=1a2b3c4"
//
// Unstamped builds fall back to the VCS metadata the Go toolchain embeds,
// or to a dev marker when even that is missing.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo()
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills Version and Commit from the vcs.* settings recorded
// when building inside a git checkout.
func fromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var revision, modified, vcsTime string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}
	if Version == "" && vcsTime != "" {
		// Tags are not part of build info, so date the dev version by the
		// commit instead.
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full renders "version (commit: hash)" for logs and the version command.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
