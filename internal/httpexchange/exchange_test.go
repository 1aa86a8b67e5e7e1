package httpexchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPOSTSendsBodyAndReturnsResponseBytes(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotExpect string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotExpect = r.Header.Get("Expect")
		b, _ := io.ReadAll(r.Body)
		gotBody = b
		_, _ = w.Write([]byte("world"))
	}))
	defer srv.Close()

	resp, err := POST(context.Background(), srv.Client(), srv.URL, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, []byte("world"), resp)
	require.Equal(t, []byte("hello"), gotBody)
	require.Equal(t, "application/octet-stream", gotContentType)
	require.Empty(t, gotExpect)
}

func TestPOSTAllowsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, int64(0), r.ContentLength)
		_, _ = w.Write(nil)
	}))
	defer srv.Close()

	resp, err := POST(context.Background(), srv.Client(), srv.URL, nil)
	require.NoError(t, err)
	require.Empty(t, resp)
}

func TestPOSTNon200IsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := POST(context.Background(), srv.Client(), srv.URL, nil)
	require.True(t, errors.Is(err, ErrHTTPFailure))
}

func TestPOSTTransportErrorIsHTTPFailure(t *testing.T) {
	_, err := POST(context.Background(), http.DefaultClient, "http://127.0.0.1:1/unreachable", nil)
	require.True(t, errors.Is(err, ErrHTTPFailure))
}
