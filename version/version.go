package version

// Values are set via ldflags on release builds.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"

	FullVersion = Version + " (" + GitCommit + ")"
)
