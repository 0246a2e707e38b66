// Package version holds build metadata injected with ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/ftdocs/internal/version.Version=v0.3.0"
package version

import "fmt"

var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for `ftdocs --version`.
func String() string {
	if GitCommit == "unknown" {
		return fmt.Sprintf("ftdocs %s", Version)
	}
	short := GitCommit
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("ftdocs %s (%s, built %s)", Version, short, BuildTime)
}
