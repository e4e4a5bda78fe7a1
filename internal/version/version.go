package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build stamp for `georef version` and the run ledger.
func String() string {
	return fmt.Sprintf("georef %s (%s, built %s)", Version, GitSHA, BuildTime)
}
