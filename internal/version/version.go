package version

import "fmt"

//nolint:gochecknoglobals // set via -ldflags at build time
var (
	Version = "unknown"
	Commit  = "unknown"
)

//nolint:gochecknoglobals
var FullVersion = fmt.Sprintf("%s-%s", Version, Commit)
