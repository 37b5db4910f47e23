package memotl

import "runtime"

// Application metadata.
const (
	// Name is the application name.
	Name = "memotl"

	// Description is a short description of the application.
	Description = "Memoizing translation layer for local model servers"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/memotl"

	// License is the software license.
	License = "MIT"
)

// Build information. These are strings so they can be set at build time:
//
//	go build -ldflags "-X github.com/ZaguanLabs/memotl.Version=1.0.0 -X github.com/ZaguanLabs/memotl.GitCommit=$(git rev-parse HEAD)"
var (
	// Version is the semantic version of the application.
	Version = "0.1.0"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// GitBranch is the git branch name.
	GitBranch = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"

	// GoVersion is the toolchain the binary was built with.
	GoVersion = runtime.Version()
)

// FullVersion returns the version string with optional build info.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns a user agent string for HTTP requests.
func UserAgent() string {
	return Name + "/" + Version
}
