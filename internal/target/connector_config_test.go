package target

import (
	"context"
	"testing"
	"time"
)

// Same "does the zero value / nil config fall back to sane defaults" shape
// as fcgx.Config's tests, now exercising target.Config.

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.ConnectTimeout != 5*time.Second {
		t.Errorf("Expected ConnectTimeout 5s, got %v", config.ConnectTimeout)
	}
}

func TestNewWithNilConfigUsesDefaults(t *testing.T) {
	c := New(1, nil)
	if c.config.ConnectTimeout != DefaultConfig().ConnectTimeout {
		t.Errorf("Expected default ConnectTimeout, got %v", c.config.ConnectTimeout)
	}
}

func TestEnsureOpenFailsAgainstNonListeningPort(t *testing.T) {
	config := &Config{ConnectTimeout: 200 * time.Millisecond}
	c := New(1, config) // port 1 is privileged/unused, dial should fail fast enough

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.EnsureOpen(ctx); err == nil {
		t.Error("expected EnsureOpen to fail dialing an unreachable port")
		_ = c.Close()
	}
}
