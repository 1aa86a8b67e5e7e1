package scgi

import (
	"fmt"
	"io"
)

// WriteResponse writes a CGI-style response preamble followed by body:
//
//	Status: <code> <reason>\r\n
//	Content-Type: <type>\r\n
//	Content-Length: <N>\r\n
//	\r\n
//	<N bytes of body>
//
// The terminator is always "\r\n\r\n" on every code path; the original
// source's stray single-CR terminator on one error branch is not
// reproduced (see spec.md §9's "Open question").
func WriteResponse(w io.Writer, code int, reason, contentType string, body []byte) error {
	_, err := fmt.Fprintf(w, "Status: %d %s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n",
		code, reason, contentType, len(body))
	if err != nil {
		return fmt.Errorf("scgi: writing response preamble: %w", err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("scgi: writing response body: %w", err)
		}
	}
	return nil
}

// WriteError writes a plain-text diagnostic response for the 400/413/502
// error paths.
func WriteError(w io.Writer, code int, reason, message string) error {
	return WriteResponse(w, code, reason, "text/plain", []byte(message))
}
