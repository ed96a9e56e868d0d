// Package httpwire reads the minimal HTTP/1.1 request head poolserve accepts and
// encodes its responses.
//
// Only a request line of the form "GET <path> HTTP/1.1" is accepted. Header
// lines are read up to the blank line and kept verbatim but never interpreted.
package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MethodGet is the only accepted method.
	MethodGet = "GET"

	// Version is the only accepted protocol version.
	Version = "HTTP/1.1"

	// DefaultMaxHeadBytes bounds the request head when no limit is given.
	DefaultMaxHeadBytes = 8 << 10
)

// Request is a parsed request head.
type Request struct {
	Method  string
	Path    string
	Version string

	// Headers holds the raw header lines following the request line.
	Headers []string
}

// ReadRequest reads lines until a blank line or end of stream and parses the
// first line as the request line. maxBytes bounds the whole head; values
// below one select DefaultMaxHeadBytes.
func ReadRequest(r *bufio.Reader, maxBytes int) (*Request, error) {
	if maxBytes < 1 {
		maxBytes = DefaultMaxHeadBytes
	}

	var lines []string
	read := 0
	for {
		raw, err := readLine(r, maxBytes-read)
		if errors.Is(err, errLineTooLong) {
			return nil, fmt.Errorf("%w: head exceeds %d bytes", ErrMalformedRequest, maxBytes)
		}
		read += len(raw)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: read request: %v", ErrIO, err)
		}

		line := strings.TrimSuffix(string(raw), "\n")
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			// A bare EOF with nothing pending ends the head as well.
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty request", ErrMalformedRequest)
	}

	req, err := ParseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}
	req.Headers = lines[1:]
	return req, nil
}

var errLineTooLong = errors.New("line exceeds head budget")

// readLine reads up to and including the next newline. It stops with
// errLineTooLong once the line would exceed budget, so at most one buffer
// past the budget is consumed from the underlying reader.
func readLine(r *bufio.Reader, budget int) ([]byte, error) {
	var line []byte
	for {
		frag, err := r.ReadSlice('\n')
		if len(line)+len(frag) > budget {
			return nil, errLineTooLong
		}
		line = append(line, frag...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, err
		}
	}
}

// ParseRequestLine tokenizes a request line on single spaces.
// Tokens past the version are ignored.
func ParseRequestLine(line string) (*Request, error) {
	tokens := strings.Split(line, " ")

	method := tokens[0]
	if method == "" && len(tokens) == 1 {
		return nil, fmt.Errorf("%w: missing method", ErrMalformedRequest)
	}
	if method != MethodGet {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: missing path", ErrMalformedRequest)
	}
	if len(tokens) < 3 {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedRequest)
	}

	version := tokens[2]
	if version != Version {
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrUnsupportedVersion, Version, version)
	}

	return &Request{
		Method:  method,
		Path:    tokens[1],
		Version: version,
	}, nil
}
