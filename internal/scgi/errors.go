package scgi

import (
	"errors"
	"fmt"
)

// ErrProtocol classifies a malformed netstring, a missing/invalid SCGI or
// CONTENT_LENGTH header, or a short body read. The Backend answers these
// with "400 Bad Request".
var ErrProtocol = errors.New("scgi: protocol error")

// ErrBodyTooLarge classifies a CONTENT_LENGTH exceeding limits.MaxBody. The
// Backend answers this with "413 Request Entity Too Large".
var ErrBodyTooLarge = errors.New("scgi: body too large")

func wrap(kind error, msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", kind, msg, err)
}
