// Package target owns the Backend Relay's single persistent TCP connection
// to the local target service. It carries forward the dial/config/
// error-wrapping shape of a FastCGI record client
// (github.com/gophpeek/fcgx), repurposed from "FastCGI record client" into
// "raw-byte forwarder with exactly one retained connection".
package target

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrConnect classifies a failure to dial the target.
	ErrConnect = errors.New("target: connect error")
	// ErrWrite classifies a write failure that survived one reconnect.
	ErrWrite = errors.New("target: write error")
	// ErrRead classifies a non-would-block read failure during drain.
	ErrRead = errors.New("target: read error")
)

func wrap(err, kind error, msg string) error {
	return fmt.Errorf("%w: %s: %v", kind, msg, err)
}

// Config holds tunables for the target connection. Descends from the
// teacher's fcgx.Config; MaxWriteSize/RequestTimeout no longer apply (there
// is no FastCGI record chunking or request deadline on the target side, see
// spec.md §5's "no explicit per-operation timeouts on the Backend side"),
// but the connect-timeout knob is kept since dialing still needs a bound.
type Config struct {
	// ConnectTimeout bounds how long EnsureOpen waits to dial the target.
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout: 5 * time.Second,
	}
}

// Connector owns the Backend's single persistent connection to
// 127.0.0.1:<port>. It is not safe to share across Backend processes, but a
// single Connector may be called serially, request after request, by the
// Backend Relay.
type Connector struct {
	addr   string
	config *Config
	conn   net.Conn
}

// New creates a Connector for 127.0.0.1:<port>. The connection is opened
// lazily on first use, per the Data Model's "created lazily on first use".
func New(port int, config *Config) *Connector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Connector{
		addr:   fmt.Sprintf("127.0.0.1:%d", port),
		config: config,
	}
}

// IsOpen reports whether a target connection currently exists. External
// observers (tests, metrics) use this to check the {0,1} connection-count
// invariant.
func (c *Connector) IsOpen() bool {
	return c.conn != nil
}

// EnsureOpen connects to the target if no connection is currently open.
func (c *Connector) EnsureOpen(ctx context.Context) error {
	return c.ensureOpen(ctx)
}

func (c *Connector) ensureOpen(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return wrap(err, ErrConnect, "dialing target "+c.addr)
	}
	c.conn = conn
	return nil
}

func (c *Connector) closeLocal() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Connector) writeAll(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	written := 0
	for written < len(body) {
		n, err := c.conn.Write(body[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

// Send blocks until all of body has been written to the target. If the
// write fails, the connection is closed and exactly one reconnect+resend is
// attempted; a second failure surfaces as ErrWrite/ErrConnect. This is the
// connector's only internal retry, per spec.md §7's error policy.
func (c *Connector) Send(ctx context.Context, body []byte) error {
	if err := c.ensureOpen(ctx); err != nil {
		return err
	}
	if err := c.writeAll(body); err == nil {
		return nil
	}

	c.closeLocal()
	if err := c.ensureOpen(ctx); err != nil {
		return wrap(err, ErrConnect, "reconnecting after write failure")
	}
	if err := c.writeAll(body); err != nil {
		return wrap(err, ErrWrite, "resending after reconnect")
	}
	return nil
}

// Drain non-blockingly reads up to capBytes currently available from the
// target. It returns as soon as capBytes have been read, the target has no
// more data ready right now, or the target closed the connection (in which
// case the connector's state becomes Closed, so the next Send will
// reconnect transparently). A 0-byte result is not an error: it is the
// normal outcome of an idle target.
func (c *Connector) Drain(capBytes int) ([]byte, error) {
	if c.conn == nil || capBytes <= 0 {
		return nil, nil
	}

	var out []byte
	chunk := make([]byte, 65536)
	for len(out) < capBytes {
		// A deadline already in the past fails the Read before it looks at
		// the socket, so give it a near-zero window instead.
		if err := c.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return out, wrap(err, ErrRead, "arming non-blocking read")
		}
		want := len(chunk)
		if remaining := capBytes - len(out); remaining < want {
			want = remaining
		}
		n, err := c.conn.Read(chunk[:want])
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break // would-block: nothing more available right now
			}
			// Any other error (including io.EOF) means the target closed
			// the connection; the next Send reopens it.
			c.closeLocal()
			break
		}
		if n == 0 {
			c.closeLocal()
			break
		}
	}
	return out, nil
}

// Close releases the target connection, if any. Called from the Backend's
// shutdown path.
func (c *Connector) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
