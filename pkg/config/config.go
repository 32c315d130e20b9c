package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	URL               string // URL of the dash telemetry source (ws:// or wss://)
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules to silence subsystems
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	ProfilingPort     int    // port for profiling
	PrintMessage      bool   // if true, the raw frame payload will be print on debug level
	NatsURL           string // if set, axis updates are republished to this NATS server
	SettingsFile      string // path of the sqlite settings database
	DebugServerAddr   string // listen addr of the debug/log server
	EnableDevControls bool   // enable manual/dev override controls in the overlay
)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintMessage      bool // if true, the raw frame payload will be print on debug level
	EnableDevControls bool // enable manual/dev override controls in the overlay
}
