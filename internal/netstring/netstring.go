// Package netstring reads and writes the `<len>:<payload>,` self-delimiting
// byte-string encoding used to frame the SCGI header block.
package netstring

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrMalformed classifies every netstring framing failure: a non-numeric or
// empty length prefix, a length exceeding maxLen, a short payload read, or a
// missing terminating comma.
var ErrMalformed = errors.New("netstring: malformed")

func wrap(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, msg, err)
}

// Write encodes data as a netstring and writes it to w.
func Write(w io.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "%d:", len(data)); err != nil {
		return fmt.Errorf("netstring: write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("netstring: write payload: %w", err)
	}
	if _, err := w.Write([]byte{','}); err != nil {
		return fmt.Errorf("netstring: write terminator: %w", err)
	}
	return nil
}

// Read parses the next netstring off r. maxLen bounds the accepted length
// prefix (the codec's MAX_HDRS guard); a length above it is rejected without
// attempting to read the payload.
func Read(r *bufio.Reader, maxLen int) ([]byte, error) {
	lenStr, err := r.ReadString(':')
	if err != nil {
		return nil, wrap("reading length prefix", err)
	}
	lenStr = lenStr[:len(lenStr)-1] // drop trailing ':'
	if lenStr == "" {
		return nil, wrap("reading length prefix", errors.New("empty length"))
	}

	n, err := strconv.Atoi(lenStr)
	if err != nil {
		return nil, wrap("parsing length prefix", err)
	}
	if n < 0 {
		return nil, wrap("parsing length prefix", errors.New("negative length"))
	}
	if n > maxLen {
		return nil, wrap("parsing length prefix", fmt.Errorf("length %d exceeds max %d", n, maxLen))
	}

	payload := make([]byte, n+1) // +1 for the terminating comma
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, wrap("reading payload", err)
	}
	if payload[n] != ',' {
		return nil, wrap("reading payload", errors.New("missing trailing comma"))
	}
	return payload[:n], nil
}
