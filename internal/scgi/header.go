package scgi

import (
	"bufio"
	"errors"
	"strconv"

	"github.com/JeromeA/tcp-over-https/internal/limits"
	"github.com/JeromeA/tcp-over-https/internal/netstring"
)

// Pair is one key/value entry from the SCGI header netstring payload.
type Pair struct {
	Key   string
	Value string
}

// Headers is the ordered list of key/value pairs parsed from a request's
// header netstring. Lookups return the first matching pair, matching the
// spec's exact-byte-match, first-wins semantics.
type Headers []Pair

// Get returns the value of the first pair whose key exactly equals key.
func (h Headers) Get(key string) (string, bool) {
	for _, p := range h {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// ParseHeaders reads and decodes the SCGI header netstring from r: a
// `<len>:<payload>,` netstring whose payload is an even number of
// NUL-terminated strings, alternating key and value.
func ParseHeaders(r *bufio.Reader) (Headers, error) {
	payload, err := netstring.Read(r, limits.MaxHeaderBytes)
	if err != nil {
		return nil, wrap(ErrProtocol, "reading header netstring", err)
	}

	var fields []string
	start := 0
	for i, b := range payload {
		if b == 0 {
			fields = append(fields, string(payload[start:i]))
			start = i + 1
		}
	}
	if start != len(payload) {
		return nil, wrap(ErrProtocol, "parsing header fields", errors.New("payload not NUL-terminated"))
	}
	if len(fields)%2 != 0 {
		return nil, wrap(ErrProtocol, "parsing header fields", errors.New("odd number of fields"))
	}

	headers := make(Headers, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		headers = append(headers, Pair{Key: fields[i], Value: fields[i+1]})
	}
	return headers, nil
}

// Validate enforces the required SCGI=="1" marker and returns the validated
// CONTENT_LENGTH. A missing/invalid SCGI marker or a non-numeric/negative
// CONTENT_LENGTH is ErrProtocol; a CONTENT_LENGTH above limits.MaxBody is
// ErrBodyTooLarge.
func Validate(h Headers) (contentLength int, err error) {
	scgiVal, ok := h.Get("SCGI")
	if !ok || scgiVal != "1" {
		return 0, wrap(ErrProtocol, "validating SCGI header", errors.New(`SCGI header must equal "1"`))
	}

	clVal, ok := h.Get("CONTENT_LENGTH")
	if !ok {
		return 0, wrap(ErrProtocol, "validating CONTENT_LENGTH", errors.New("missing CONTENT_LENGTH"))
	}
	n, err2 := strconv.Atoi(clVal)
	if err2 != nil || n < 0 {
		return 0, wrap(ErrProtocol, "validating CONTENT_LENGTH", errors.New("CONTENT_LENGTH must be a non-negative decimal"))
	}
	if n > limits.MaxBody {
		return 0, wrap(ErrBodyTooLarge, "validating CONTENT_LENGTH", errors.New("CONTENT_LENGTH exceeds MAX_BODY"))
	}
	return n, nil
}
