package debugsrv

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/racedash/rsc-input-service-go/log"
	"github.com/racedash/rsc-input-service-go/pkg/config"
	"github.com/racedash/rsc-input-service-go/pkg/debugsrv"
)

func NewDebugServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debugsrv",
		Short: "starts the standalone debug/log server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVar(&config.DebugServerAddr,
		"debug-server-addr",
		"localhost:8777",
		"debug server listen address")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	return cmd
}

func startServer() error {
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.ResetDefault(log.DevLogger(os.Stderr, level,
		log.WithCaller(true), log.AddCallerSkip(1)))

	srv := debugsrv.New(config.DebugServerAddr)
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	select {
	case err := <-errChan:
		return err
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	log.Info("Server terminated")
	return nil
}
