// Package httpexchange implements the Frontend's single blocking HTTP
// round trip per tick: POST the bytes read from the local client this tick
// (possibly none) and return the backend's response bytes. net/http is used
// directly here — spec.md §1 names the HTTP client transport itself as an
// external "commodity library" collaborator, not something this package
// reimplements.
package httpexchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrHTTPFailure classifies a transport error or a non-200 status from the
// relay hop. The Frontend treats this as fatal for its one session.
var ErrHTTPFailure = errors.New("httpexchange: http failure")

// POST performs one exchange: POST body to url using client, returning the
// full response body on success. Only HTTP 200 is accepted.
func POST(ctx context.Context, client *http.Client, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrHTTPFailure, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	// Suppress any automatic "Expect: 100-continue", mirroring the original
	// source's curl_slist_append(hdrs, "Expect:").
	req.Header.Set("Expect", "")
	req.ContentLength = int64(len(body))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: performing request: %v", ErrHTTPFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrHTTPFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: relay responded %s", ErrHTTPFailure, resp.Status)
	}
	return respBody, nil
}
