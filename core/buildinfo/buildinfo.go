// Package buildinfo carries the version stamped in at link time:
//
//	-X 'github.com/m3rciful/walkbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/walkbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/walkbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

var fillOnce sync.Once

// Fill replaces unset Commit and Date with the VCS stamp recorded by the go tool.
func Fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "local" && s.Value != "" {
					Commit = short(s.Value)
				}
			case "vcs.time":
				if Date == "" {
					Date = s.Value
				}
			}
		}
	})
}

// String formats the build as "version (commit, date)".
func String() string {
	Fill()
	date := Date
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, date)
}

func short(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
