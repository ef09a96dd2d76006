// Package version reports which lifescribe build is running.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/lifescribe/version.Version=0.4.0" ./cmd/lifescribe
//
// Unset values fall back to the VCS stamp in the binary's build info.
package version
