// Package version carries the build-stamped release version.
package version

// Value is replaced at release time via:
//
//	go build -ldflags "-X jellyshrink/internal/version.Value=v1.2.3"
var Value = "dev"
