package monitor

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/racedash/rsc-input-service-go/log"
	"github.com/racedash/rsc-input-service-go/pkg/client"
	"github.com/racedash/rsc-input-service-go/pkg/config"
	"github.com/racedash/rsc-input-service-go/pkg/model"
)

var printRaw bool

func NewMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "connects to the telemetry source and logs axis updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor()
		},
	}
	cmd.Flags().BoolVar(&printRaw,
		"print-raw",
		false,
		"also log the raw frame payloads")
	return cmd
}

func monitor() error {
	logger := log.DevLogger(
		os.Stderr,
		log.DebugLevel,
		log.WithCaller(true),
		log.AddCallerSkip(1))
	log.ResetDefault(logger)

	c := client.New(config.URL,
		client.WithPrintMessage(printRaw))
	defer c.Close()

	for _, axis := range model.KnownAxes() {
		c.AddListener(axis, func(value model.AxisValue) {
			switch v := value.(type) {
			case model.PedalValue:
				log.Info("pedal",
					log.String("axis", axis.String()),
					log.Float("currentAngle", v.CurrentAngle))
			case model.SteeringValue:
				log.Info("steering",
					log.Float("rotation", v.Rotation))
			}
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	select {
	case <-sigChan:
	case <-c.Done():
		log.Info("session ended")
	}
	log.Info("done")
	return nil
}
