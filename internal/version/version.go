// Package version holds the application version string.
package version

// Version is the current application version. Overridable at build time:
//
//	go build -ldflags "-X github.com/aristath/fincalc/internal/version.Version=1.2.3"
var Version = "1.0.0"
