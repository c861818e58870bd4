package config

// Linker-injected build metadata variables, set at compile time:
//
//	go build -ldflags "-X spacepurchase/internal/config.version=1.2.3 \
//	    -X spacepurchase/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X spacepurchase/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo constructs a BuildInfo from the linker-injected variables.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
