package httpwire

import (
	"bufio"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func readFrom(s string) (*Request, error) {
	return ReadRequest(bufio.NewReader(strings.NewReader(s)), 0)
}

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		path    string
		headers int
		wantErr error
	}{
		{name: "minimal", input: "GET /hello.txt HTTP/1.1\r\n\r\n", path: "/hello.txt"},
		{name: "bare newlines", input: "GET /a HTTP/1.1\n\n", path: "/a"},
		{name: "headers ignored", input: "GET /a HTTP/1.1\r\nHost: x\r\nAccept: */*\r\n\r\n", path: "/a", headers: 2},
		{name: "eof without blank line", input: "GET /a HTTP/1.1", path: "/a"},
		{name: "trailing data after head", input: "GET /a HTTP/1.1\r\n\r\nbody", path: "/a"},
		{name: "extra tokens", input: "GET /a HTTP/1.1 extra\r\n\r\n", path: "/a"},
		{name: "empty stream", input: "", wantErr: ErrMalformedRequest},
		{name: "blank first line", input: "\r\n", wantErr: ErrMalformedRequest},
		{name: "post", input: "POST /x HTTP/1.1\r\n\r\n", wantErr: ErrUnsupportedMethod},
		{name: "lowercase get", input: "get /x HTTP/1.1\r\n\r\n", wantErr: ErrUnsupportedMethod},
		{name: "http 1.0", input: "GET /x HTTP/1.0\r\n\r\n", wantErr: ErrUnsupportedVersion},
		{name: "missing version", input: "GET /x\r\n\r\n", wantErr: ErrMalformedRequest},
		{name: "missing path", input: "GET\r\n\r\n", wantErr: ErrMalformedRequest},
		{name: "double space", input: "GET  /x HTTP/1.1\r\n\r\n", wantErr: ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := readFrom(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadRequest() error: %v", err)
			}
			if req.Method != MethodGet || req.Version != Version {
				t.Errorf("method/version = %q/%q", req.Method, req.Version)
			}
			if req.Path != tt.path {
				t.Errorf("Path = %q, want %q", req.Path, tt.path)
			}
			if len(req.Headers) != tt.headers {
				t.Errorf("len(Headers) = %d, want %d", len(req.Headers), tt.headers)
			}
		})
	}
}

func TestReadRequest_HeadLimit(t *testing.T) {
	input := "GET /a HTTP/1.1\r\nX-Pad: " + strings.Repeat("a", 200) + "\r\n\r\n"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), 64)
	if !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("ReadRequest() error = %v, want ErrMalformedRequest", err)
	}
}

// endlessLine yields 'a' bytes forever and counts what was taken.
type endlessLine struct {
	consumed int
}

func (e *endlessLine) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	e.consumed += len(p)
	return len(p), nil
}

func TestReadRequest_HeadLimitBoundsReads(t *testing.T) {
	src := &endlessLine{}
	r := bufio.NewReader(src)

	_, err := ReadRequest(r, 64)
	if !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("ReadRequest() error = %v, want ErrMalformedRequest", err)
	}
	if limit := 64 + r.Size(); src.consumed > limit {
		t.Errorf("consumed %d bytes from a line with no newline, want at most %d", src.consumed, limit)
	}
}

func TestReadRequest_HeadLimitAcrossLines(t *testing.T) {
	input := "GET /a HTTP/1.1\r\n" + strings.Repeat("X-A: b\r\n", 8) + "\r\n"
	if _, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), len(input)); err != nil {
		t.Fatalf("ReadRequest() at exact limit error: %v", err)
	}
	if _, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), len(input)-1); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("ReadRequest() one byte over error = %v, want ErrMalformedRequest", err)
	}
}

func TestReadRequest_ReadError(t *testing.T) {
	r := bufio.NewReader(iotest.ErrReader(errors.New("connection reset")))
	_, err := ReadRequest(r, 0)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("ReadRequest() error = %v, want ErrIO", err)
	}
}

func TestParseRequestLine_Empty(t *testing.T) {
	if _, err := ParseRequestLine(""); !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("ParseRequestLine(\"\") error = %v, want ErrMalformedRequest", err)
	}
}

func TestStatusText(t *testing.T) {
	want := map[int]string{200: "OK", 404: "NOT FOUND", 500: "INTERNAL SERVER ERROR"}
	for code, reason := range want {
		got, err := StatusText(code)
		if err != nil || got != reason {
			t.Errorf("StatusText(%d) = %q, %v; want %q", code, got, err, reason)
		}
	}

	for _, code := range []int{0, 201, 400, 418, 503} {
		if _, err := StatusText(code); !errors.Is(err, ErrUnknownStatusCode) {
			t.Errorf("StatusText(%d) error = %v, want ErrUnknownStatusCode", code, err)
		}
	}
}

func TestResponse_Encode(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{
			name: "ok with body",
			resp: NewResponse(StatusOK).SetBody([]byte("hi")),
			want: "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi",
		},
		{
			name: "ok with empty body",
			resp: NewResponse(StatusOK).SetBody([]byte{}),
			want: "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
		},
		{
			name: "not found",
			resp: NewResponse(StatusNotFound),
			want: "HTTP/1.1 404 NOT FOUND\r\n\r\n",
		},
		{
			name: "internal error",
			resp: NewResponse(StatusInternalServerError),
			want: "HTTP/1.1 500 INTERNAL SERVER ERROR\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resp.Encode()
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponse_EncodeUnknownStatus(t *testing.T) {
	_, err := NewResponse(302).Encode()
	if !errors.Is(err, ErrUnknownStatusCode) {
		t.Fatalf("Encode() error = %v, want ErrUnknownStatusCode", err)
	}
}

func TestInternalError(t *testing.T) {
	encoded, err := NewResponse(StatusInternalServerError).Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got := InternalError()
	if string(got) != string(encoded) {
		t.Errorf("InternalError() = %q, want %q", got, encoded)
	}

	got[0] = 'X'
	if InternalError()[0] != 'H' {
		t.Error("InternalError() shares its backing array")
	}
}
