// Package version holds the build version, overridden at link time:
//
//	go build -ldflags "-X github.com/guiyumin/bgscribe/internal/core/version.Version=1.2.0"
package version

// Version is the semantic version of the binary.
var Version = "0.1.0-dev"
