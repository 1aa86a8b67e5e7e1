// Package frontend implements the Frontend Relay: it accepts exactly one
// local TCP client, then runs the adaptive-poll tick loop that turns that
// client's byte stream into a sequence of HTTP POST exchanges.
package frontend

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JeromeA/tcp-over-https/internal/httpexchange"
	"github.com/JeromeA/tcp-over-https/internal/limits"
)

// Recorder receives observability events from the Session. Implementations
// live in internal/metrics; NopRecorder is used when metrics aren't wired.
type Recorder interface {
	BackoffDelay(d time.Duration)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) BackoffDelay(time.Duration) {}

// Session owns the one client connection the Frontend process will ever
// serve (spec.md §4.5's "single-client policy").
type Session struct {
	URL      string
	Client   *http.Client
	Logger   *logrus.Logger
	Recorder Recorder

	// now is overridable for deterministic backoff tests, in the spirit of
	// rodrigoqtest-core's injectable timeSince.
	now func() time.Time
}

// New builds a Session. httpClient and logger/recorder may be nil, falling
// back to http.DefaultClient and a discarding logger/NopRecorder.
func New(url string, httpClient *http.Client, logger *logrus.Logger, recorder Recorder) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Session{URL: url, Client: httpClient, Logger: logger, Recorder: recorder, now: time.Now}
}

// AcceptOne accepts exactly one connection from ln and then closes ln, per
// the one-shot Frontend policy: "Subsequent clients are not served; a fresh
// process handles the next session."
func AcceptOne(ln net.Listener) (net.Conn, error) {
	conn, err := ln.Accept()
	closeErr := ln.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return conn, closeErr
	}
	return conn, nil
}

// Run drives the tick loop against conn until the client disconnects, an
// unrecoverable read error occurs, or an HTTP exchange fails. It implements
// spec.md §4.5 exactly: every tick performs one POST, possibly empty, and
// the delay backs off only when a tick was fully idle (nothing read from
// the client, nothing returned by the hop).
func (s *Session) Run(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	delay := limits.InitialDelay
	buf := make([]byte, limits.BufSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := conn.SetReadDeadline(s.now().Add(delay)); err != nil {
			return err
		}

		sendLen := 0
		n, err := conn.Read(buf)
		switch {
		case err == nil:
			if n == 0 {
				// peer closed with a clean zero-byte, non-error read
				return nil
			}
			sendLen = n
		case isTimeout(err):
			// nothing readable within this tick's wait; still POST
		case isEOF(err):
			s.Logger.Debug("client closed connection")
			return nil
		default:
			s.Logger.WithError(err).Warn("client read failed")
			return err
		}

		var body []byte
		if sendLen > 0 {
			body = buf[:sendLen]
		}

		resp, err := httpexchange.POST(ctx, s.Client, s.URL, body)
		if err != nil {
			s.Logger.WithError(err).Error("http exchange failed")
			return err
		}

		if len(resp) > 0 {
			if _, err := writeAll(conn, resp); err != nil {
				s.Logger.WithError(err).Warn("failed to write response to client")
				return err
			}
			delay = limits.InitialDelay
		} else if sendLen == 0 {
			delay *= 2
			if delay > limits.MaxDelay {
				delay = limits.MaxDelay
			}
		} else {
			delay = limits.InitialDelay
		}
		s.Recorder.BackoffDelay(delay)
	}
}

func writeAll(conn net.Conn, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := conn.Write(data[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
