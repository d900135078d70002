package config

// Linker-injected build metadata variables. These are set at compile time via
// -ldflags, for example:
//
//	go build -ldflags "-X skysense/internal/config.version=1.2.3 \
//	    -X skysense/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X skysense/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Default values are used during local development when ldflags are not set.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo constructs a BuildInfo from the linker-injected global variables.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// UserAgent renders the outbound User-Agent for this build.
func (b BuildInfo) UserAgent(product string) string {
	if b.Version == "" {
		return product
	}
	return product + " (" + b.Version + ")"
}
