package supervisor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenBindsLoopbackAddress(t *testing.T) {
	ctx := context.Background()
	ln, err := Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	require.NotEmpty(t, ln.Addr().String())
}

func TestRunStopsWhenPrimaryReturns(t *testing.T) {
	invoked := false
	err := Run(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	}, "")
	require.NoError(t, err)
	require.True(t, invoked)
}

func TestRunPropagatesPrimaryError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), func(ctx context.Context) error {
		return boom
	}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestRunCancelsPrimaryWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	runDone := make(chan error, 1)
	go func() {
		runDone <- Run(ctx, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}, "")
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("primary never started")
	}

	cancel()

	select {
	case err := <-runDone:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunServesMetricsAlongsidePrimary(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // free the port; Run's metrics server rebinds it

	err = Run(context.Background(), func(ctx context.Context) error {
		var resp *http.Response
		require.Eventually(t, func() bool {
			var getErr error
			resp, getErr = http.Get("http://" + addr + "/metrics")
			return getErr == nil
		}, 2*time.Second, 10*time.Millisecond)
		resp.Body.Close()
		return nil
	}, addr)
	require.NoError(t, err)
}
