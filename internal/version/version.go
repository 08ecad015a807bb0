// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/unihelp/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:gochecknoglobals // set by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the metadata for `unihelp --version`.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
