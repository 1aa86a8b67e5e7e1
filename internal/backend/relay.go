// Package backend implements the Backend Relay: it accepts SCGI requests
// serially and routes each one's body to the persistent target connection,
// then drains whatever the target has produced back as the response.
package backend

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JeromeA/tcp-over-https/internal/limits"
	"github.com/JeromeA/tcp-over-https/internal/scgi"
	"github.com/JeromeA/tcp-over-https/internal/target"
)

// Recorder receives observability events from the Relay. Implementations
// live in internal/metrics; tests and callers that don't care about metrics
// use NopRecorder.
type Recorder interface {
	TargetConnectionOpen(open bool)
	RequestHandled(statusCode int)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) TargetConnectionOpen(bool) {}
func (NopRecorder) RequestHandled(int)        {}

// Relay serves SCGI requests against a single *target.Connector, to
// completion, one at a time — spec.md §4.3's "serialized per-connection
// handler" run repeatedly across connections.
type Relay struct {
	Connector *target.Connector
	Logger    *logrus.Logger
	Recorder  Recorder
}

// New builds a Relay. logger and recorder may be nil, in which case a
// discarding logger and NopRecorder are used.
func New(connector *target.Connector, logger *logrus.Logger, recorder Recorder) *Relay {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Relay{Connector: connector, Logger: logger, Recorder: recorder}
}

// Serve accepts connections from ln until ctx is cancelled, handling each to
// completion before accepting the next (spec.md §5: "single-threaded,
// cooperative, blocking-I/O").
func (r *Relay) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.handleConn(ctx, conn)
	}
}

func (r *Relay) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	log := r.Logger.WithField("request_id", id)
	defer conn.Close()

	br := bufio.NewReader(conn)

	// AwaitHeaders
	headers, err := scgi.ParseHeaders(br)
	if err != nil {
		log.WithError(err).Warn("malformed SCGI headers")
		r.reply(log, conn, 400, "Bad Request", err.Error())
		return
	}

	contentLength, err := scgi.Validate(headers)
	if err != nil {
		if errors.Is(err, scgi.ErrBodyTooLarge) {
			log.WithError(err).Warn("request body exceeds MAX_BODY")
			r.reply(log, conn, 413, "Request Entity Too Large", err.Error())
			return
		}
		log.WithError(err).Warn("invalid SCGI headers")
		r.reply(log, conn, 400, "Bad Request", err.Error())
		return
	}

	// AwaitBody
	body, err := scgi.ReadBody(br, contentLength)
	if err != nil {
		log.WithError(err).Warn("short request body")
		r.reply(log, conn, 400, "Bad Request", err.Error())
		return
	}

	// Forwarding
	if err := r.Connector.Send(ctx, body); err != nil {
		log.WithError(err).Error("failed to forward body to target")
		r.Recorder.TargetConnectionOpen(r.Connector.IsOpen())
		r.reply(log, conn, 502, "Bad Gateway", "failed to forward request to target")
		return
	}
	r.Recorder.TargetConnectionOpen(r.Connector.IsOpen())

	// Draining
	drained, err := r.Connector.Drain(limits.MaxResp)
	if err != nil {
		log.WithError(err).Error("failed to drain target")
		r.reply(log, conn, 502, "Bad Gateway", "failed to read response from target")
		return
	}
	r.Recorder.TargetConnectionOpen(r.Connector.IsOpen())

	// Responded
	log.WithField("body_bytes", humanize.Bytes(uint64(len(body)))).
		WithField("drained_bytes", humanize.Bytes(uint64(len(drained)))).
		Debug("request complete")
	if err := scgi.WriteResponse(conn, 200, "OK", "application/octet-stream", drained); err != nil {
		log.WithError(err).Warn("failed to write response")
		return
	}
	r.Recorder.RequestHandled(200)
}

func (r *Relay) reply(log *logrus.Entry, conn net.Conn, code int, reason, message string) {
	if err := scgi.WriteError(conn, code, reason, message); err != nil {
		log.WithError(err).Warn("failed to write error response")
	}
	r.Recorder.RequestHandled(code)
}
