package overlay

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/racedash/rsc-input-service-go/log"
	"github.com/racedash/rsc-input-service-go/pkg/client"
	"github.com/racedash/rsc-input-service-go/pkg/config"
	"github.com/racedash/rsc-input-service-go/pkg/debugsrv"
	"github.com/racedash/rsc-input-service-go/pkg/model"
	"github.com/racedash/rsc-input-service-go/pkg/pubsub"
	"github.com/racedash/rsc-input-service-go/pkg/settings"
	"github.com/racedash/rsc-input-service-go/pkg/utils"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewOverlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "runs the telemetry backend for the input display overlay",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return startOverlay()
		},
	}
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules to silence subsystems (e.g. 'debug:client* info:*')")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&appConfig.PrintMessage,
		"print-message",
		false,
		"if true and log level is debug, the raw frame payload will be printed")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"if set, axis updates are republished to this NATS server")
	cmd.Flags().StringVar(&config.SettingsFile,
		"settings-file",
		"ris-settings.db",
		"path of the sqlite settings database")
	cmd.Flags().StringVar(&config.DebugServerAddr,
		"debug-server-addr",
		"",
		"if set, an embedded debug/log server listens on this address")
	cmd.Flags().BoolVar(&appConfig.EnableDevControls,
		"enable-dev-controls",
		false,
		"enable manual/dev override controls in the overlay")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogFilter != "" {
		logger = log.FilterByRules(logger, config.LogFilter)
	}
	log.ResetDefault(logger)
}

//nolint:funlen,cyclop // by design
func startOverlay() error {
	setupLogger()

	log.Debug("Config:",
		log.String("url", config.URL),
		log.String("settingsFile", config.SettingsFile),
		log.String("natsUrl", config.NatsURL),
		log.Bool("devControls", appConfig.EnableDevControls),
	)

	var telemetry *config.Telemetry
	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(context.Background()); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		if err = otlpruntime.Start(
			otlpruntime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	endpointAddr, _ := utils.ExtractFromWebsocketURL(config.URL)
	if endpointAddr == "" {
		return fmt.Errorf("invalid telemetry source url: %s", config.URL)
	}
	waitForRequiredServices(endpointAddr)

	store, err := settings.Open(config.SettingsFile)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Put(context.Background(), "last-endpoint", config.URL); err != nil {
		log.Warn("could not store endpoint", log.ErrorField(err))
	}

	var debugServer *debugsrv.Server
	if config.DebugServerAddr != "" {
		debugServer = debugsrv.New(config.DebugServerAddr)
		go func() {
			if err := debugServer.Start(); err != nil {
				log.Error("debug server stopped", log.ErrorField(err))
			}
		}()
	}

	var publisher *pubsub.AxisPublisher
	if config.NatsURL != "" {
		conn, err := nats.Connect(config.NatsURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Drain() //nolint:errcheck // shutdown path
		publisher = pubsub.NewAxisPublisher(conn)
	}

	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	log.Info("Overlay backend started", log.String("url", config.URL))
	runClients(sigChan, endpointAddr, publisher, debugServer)

	if debugServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		debugServer.Shutdown(ctx)
		cancel()
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Overlay backend terminated")
	return nil
}

// runClients constructs a fresh client whenever the previous session ended.
// The client itself has no reconnect policy; it lives here instead.
func runClients(
	sigChan <-chan os.Signal,
	endpointAddr string,
	publisher *pubsub.AxisPublisher,
	debugServer *debugsrv.Server,
) {
	for {
		c := newClient(publisher, debugServer)
		select {
		case v := <-sigChan:
			log.Debug("Got signal ", log.Any("signal", v))
			c.Close()
			return
		case <-c.Done():
			log.Warn("telemetry session ended, reconnecting")
			timeout, err := time.ParseDuration(config.WaitForServices)
			if err != nil {
				timeout = 15 * time.Second
			}
			if err := utils.WaitForTCP(endpointAddr, timeout); err != nil {
				log.Error("telemetry source not reachable", log.ErrorField(err))
				return
			}
		}
	}
}

func newClient(
	publisher *pubsub.AxisPublisher,
	debugServer *debugsrv.Server,
) *client.TelemetryClient {
	opts := []client.Option{
		client.WithPrintMessage(appConfig.PrintMessage),
	}
	if debugServer != nil {
		opts = append(opts,
			client.WithReporter(debugServer),
			client.WithFrameObserver(debugServer.PublishFrame))
	}
	c := client.New(config.URL, opts...)
	for _, axis := range model.KnownAxes() {
		c.AddListener(axis, func(value model.AxisValue) {
			log.Debug("axis update",
				log.String("axis", axis.String()), log.Any("value", value))
		})
	}
	if publisher != nil {
		publisher.Bind(c)
	}
	return c
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices(endpointAddr string) {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if err := utils.WaitForTCP(endpointAddr, timeout); err != nil {
		log.Warn("telemetry source not ready", log.ErrorField(err))
	}
}
