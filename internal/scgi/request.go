package scgi

import (
	"io"
)

// ReadBody reads exactly n bytes from r. A short read (EOF before n bytes
// arrive) is ErrProtocol: a truncated SCGI body is a 400, not a 502.
func ReadBody(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, wrap(ErrProtocol, "reading request body", err)
	}
	return body, nil
}
