// Package version reports the release of the outreach CLI.
package version

import "fmt"

// Current is the release version, without a leading "v".
const Current = "0.1.0"

// Commit is set at build time with -ldflags "-X .../internal/version.Commit=<sha>".
var Commit = ""

// String returns Current plus the commit when known.
func String() string {
	if Commit == "" {
		return Current
	}
	return fmt.Sprintf("%s (%s)", Current, Commit)
}
