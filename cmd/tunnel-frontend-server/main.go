// Command tunnel-frontend-server runs the Frontend Relay: it accepts
// exactly one local TCP client on listen_port and turns its byte stream
// into a sequence of adaptively-polled HTTP POST exchanges against url.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/JeromeA/tcp-over-https/internal/config"
	"github.com/JeromeA/tcp-over-https/internal/frontend"
	"github.com/JeromeA/tcp-over-https/internal/metrics"
	"github.com/JeromeA/tcp-over-https/internal/supervisor"
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
		Use:   "tunnel-frontend-server <listen_port> <url>",
		Short: "Accept one local TCP client and relay it over adaptively-polled HTTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenPort, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("listen_port: %w", err)
			}
			url := args[1]

			cfg := config.DefaultFrontend()
			if err := config.LoadFile(configPath, &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			return run(listenPort, url, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. 127.0.0.1:9090")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")

	return cmd
}

func run(listenPort int, url string, cfg config.Frontend) error {
	if _, err := maxprocs.Set(); err != nil {
		logrus.WithError(err).Debug("automaxprocs: failed to adjust GOMAXPROCS")
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := supervisor.SignalContext()
	defer cancel()

	ln, err := supervisor.Listen(ctx, fmt.Sprintf(":%d", listenPort))
	if err != nil {
		return err
	}

	var recorder frontend.Recorder = frontend.NopRecorder{}
	if cfg.MetricsAddr != "" {
		recorder = metrics.NewFrontend(prometheus.DefaultRegisterer)
	}

	session := frontend.New(url, http.DefaultClient, logger, recorder)

	logger.WithField("listen_port", listenPort).WithField("url", url).Info("frontend relay waiting for one client")

	return supervisor.Run(ctx, func(ctx context.Context) error {
		conn, err := frontend.AcceptOne(ln)
		if err != nil {
			return err
		}
		return session.Run(ctx, conn)
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
