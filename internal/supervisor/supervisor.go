// Package supervisor provides the process-lifecycle glue shared by both
// command-line entry points: SO_REUSEADDR socket setup, signal-driven
// graceful shutdown, and joining the relay's accept loop with an optional
// metrics listener.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// SignalContext returns a context cancelled on SIGINT or SIGTERM, replacing
// the original C source's `volatile sig_atomic_t keep_running` flag with
// the idiomatic modern-Go equivalent.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Listen binds a TCP listener on addr with SO_REUSEADDR explicitly set,
// mirroring the original source's explicit
// `setsockopt(SOL_SOCKET, SO_REUSEADDR, ...)` rather than relying on a
// platform's listen() default.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("supervisor: listening on %s: %w", addr, err)
	}
	return ln, nil
}

// Run executes primary under ctx, optionally serving Prometheus metrics on
// metricsAddr alongside it, and joins their shutdown once ctx is cancelled
// or primary returns. Teardown errors from both the relay and the metrics
// listener are aggregated with hashicorp/go-multierror rather than only the
// first one being surfaced.
func Run(ctx context.Context, primary func(context.Context) error, metricsAddr string) error {
	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var combined *multierror.Error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		combined = multierror.Append(combined, err)
	}

	var g errgroup.Group
	var metricsSrv *http.Server
	if metricsAddr != "" {
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				record(fmt.Errorf("metrics server: %w", err))
			}
			return nil
		})
	}

	g.Go(func() error {
		record(primary(innerCtx))
		cancel() // primary finished (cleanly or not): tear down the metrics server too
		return nil
	})

	g.Go(func() error {
		<-innerCtx.Done()
		if metricsSrv != nil {
			if err := metricsSrv.Close(); err != nil {
				record(fmt.Errorf("closing metrics server: %w", err))
			}
		}
		return nil
	})

	_ = g.Wait()
	return combined.ErrorOrNil()
}
