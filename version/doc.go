// Package version reports the build of the audiotranscriber binary.
//
// Values are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/audiotranscriber/version.Version=1.4.0 \
//	    -X github.com/kbukum/audiotranscriber/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset values fall back to the VCS stamps in the binary's build info.
package version
