package scgi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func encode(pairs ...string) []byte {
	var buf bytes.Buffer
	for _, p := range pairs {
		buf.WriteString(p)
		buf.WriteByte(0)
	}
	payload := buf.Bytes()
	return []byte(fmt.Sprintf("%d:%s,", len(payload), payload))
}

func TestParseHeadersValid(t *testing.T) {
	wire := encode("CONTENT_LENGTH", "5", "SCGI", "1", "X-Extra", "ignored")
	h, err := ParseHeaders(bufio.NewReader(bytes.NewReader(wire)))
	if err != nil {
		t.Fatalf("ParseHeaders: %v", err)
	}
	if v, ok := h.Get("SCGI"); !ok || v != "1" {
		t.Fatalf("expected SCGI=1, got %q ok=%v", v, ok)
	}
	if v, ok := h.Get("CONTENT_LENGTH"); !ok || v != "5" {
		t.Fatalf("expected CONTENT_LENGTH=5, got %q ok=%v", v, ok)
	}
}

func TestGetReturnsFirstMatch(t *testing.T) {
	h := Headers{{Key: "K", Value: "first"}, {Key: "K", Value: "second"}}
	v, ok := h.Get("K")
	if !ok || v != "first" {
		t.Fatalf("expected first match %q, got %q ok=%v", "first", v, ok)
	}
}

func TestParseHeadersRejectsOddFieldCount(t *testing.T) {
	payload := []byte("KEY\x00")
	wire := []byte(fmt.Sprintf("%d:%s,", len(payload), payload))
	_, err := ParseHeaders(bufio.NewReader(bytes.NewReader(wire)))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestParseHeadersRejectsMalformedNetstring(t *testing.T) {
	_, err := ParseHeaders(bufio.NewReader(bytes.NewReader([]byte("abc:...,"))))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestValidateBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		headers Headers
		wantCL  int
		wantErr error
	}{
		{
			name:    "zero length",
			headers: Headers{{"CONTENT_LENGTH", "0"}, {"SCGI", "1"}},
			wantCL:  0,
		},
		{
			name:    "max body",
			headers: Headers{{"CONTENT_LENGTH", "10485760"}, {"SCGI", "1"}},
			wantCL:  10485760,
		},
		{
			name:    "over max body",
			headers: Headers{{"CONTENT_LENGTH", "10485761"}, {"SCGI", "1"}},
			wantErr: ErrBodyTooLarge,
		},
		{
			name:    "missing scgi",
			headers: Headers{{"CONTENT_LENGTH", "0"}},
			wantErr: ErrProtocol,
		},
		{
			name:    "wrong scgi value",
			headers: Headers{{"CONTENT_LENGTH", "0"}, {"SCGI", "2"}},
			wantErr: ErrProtocol,
		},
		{
			name:    "non numeric content length",
			headers: Headers{{"CONTENT_LENGTH", "abc"}, {"SCGI", "1"}},
			wantErr: ErrProtocol,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cl, err := Validate(tc.headers)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cl != tc.wantCL {
				t.Fatalf("expected content length %d, got %d", tc.wantCL, cl)
			}
		})
	}
}

func TestReadBodyShortReadIsProtocolError(t *testing.T) {
	_, err := ReadBody(bytes.NewReader([]byte("abc")), 10)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestWriteResponseFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, 200, "OK", "application/octet-stream", []byte("back")); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	want := "Status: 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 4\r\n\r\nback"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriteResponseEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, 200, "OK", "application/octet-stream", nil); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	want := "Status: 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 0\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}
