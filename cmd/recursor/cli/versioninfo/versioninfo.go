// Package versioninfo carries build metadata injected via -ldflags.
package versioninfo

// Set at build time:
//
//	go build -ldflags "-X github.com/recursorhq/recursor/cmd/recursor/cli/versioninfo.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)
