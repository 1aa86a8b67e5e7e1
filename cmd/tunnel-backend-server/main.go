// Command tunnel-backend-server runs the Backend Relay: it terminates SCGI
// requests on scgi_listen_port and forwards each request body to a single
// persistent TCP connection to 127.0.0.1:target_local_port, draining
// whatever the target produces back as the SCGI response.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/JeromeA/tcp-over-https/internal/backend"
	"github.com/JeromeA/tcp-over-https/internal/config"
	"github.com/JeromeA/tcp-over-https/internal/metrics"
	"github.com/JeromeA/tcp-over-https/internal/supervisor"
	"github.com/JeromeA/tcp-over-https/internal/target"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, metricsAddr, logLevel string

	cmd := &cobra.Command{
		Use:   "tunnel-backend-server <scgi_listen_port> <target_local_port>",
		Short: "Terminate SCGI requests and relay them to a local TCP target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scgiPort, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("scgi_listen_port: %w", err)
			}
			targetPort, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("target_local_port: %w", err)
			}

			cfg := config.DefaultBackend()
			if err := config.LoadFile(configPath, &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			return run(scgiPort, targetPort, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. 127.0.0.1:9090")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")

	return cmd
}

func run(scgiPort, targetPort int, cfg config.Backend) error {
	if _, err := maxprocs.Set(); err != nil {
		// Non-fatal: GOMAXPROCS just stays at the runtime default.
		logrus.WithError(err).Debug("automaxprocs: failed to adjust GOMAXPROCS")
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := supervisor.SignalContext()
	defer cancel()

	ln, err := supervisor.Listen(ctx, fmt.Sprintf(":%d", scgiPort))
	if err != nil {
		return err
	}

	connector := target.New(targetPort, &target.Config{ConnectTimeout: cfg.ConnectTimeout})
	defer connector.Close()

	var recorder backend.Recorder = backend.NopRecorder{}
	if cfg.MetricsAddr != "" {
		recorder = metrics.NewBackend(prometheus.DefaultRegisterer)
	}

	relay := backend.New(connector, logger, recorder)

	logger.WithField("scgi_port", scgiPort).WithField("target_port", targetPort).Info("backend relay listening")

	return supervisor.Run(ctx, func(ctx context.Context) error {
		return relay.Serve(ctx, ln)
	}, cfg.MetricsAddr)
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
