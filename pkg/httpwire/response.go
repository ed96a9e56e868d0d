package httpwire

import (
	"fmt"
	"strconv"
)

// Status codes produced by poolserve.
const (
	StatusOK                  = 200
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

var internalError = []byte("HTTP/1.1 500 INTERNAL SERVER ERROR\r\n\r\n")

// StatusText returns the reason phrase for code.
func StatusText(code int) (string, error) {
	switch code {
	case StatusOK:
		return "OK", nil
	case StatusNotFound:
		return "NOT FOUND", nil
	case StatusInternalServerError:
		return "INTERNAL SERVER ERROR", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownStatusCode, code)
	}
}

// Response is a status plus an optional body.
type Response struct {
	Status int
	Body   []byte

	hasBody bool
}

// NewResponse returns a body-less response.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// SetBody attaches a body. An empty body still yields "Content-Length: 0".
func (r *Response) SetBody(b []byte) *Response {
	r.Body = b
	r.hasBody = true
	return r
}

// HasBody reports whether a body was attached.
func (r *Response) HasBody() bool {
	return r.hasBody
}

// Encode renders the full response:
//
//	HTTP/1.1 <code> <reason>\r\n
//	[Content-Length: <n>\r\n]
//	\r\n
//	[body]
func (r *Response) Encode() ([]byte, error) {
	reason, err := StatusText(r.Status)
	if err != nil {
		return nil, err
	}

	size := len(Version) + len(reason) + 32
	if r.hasBody {
		size += len(r.Body) + 32
	}
	buf := make([]byte, 0, size)

	buf = append(buf, Version...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(r.Status), 10)
	buf = append(buf, ' ')
	buf = append(buf, reason...)
	buf = append(buf, "\r\n"...)

	if r.hasBody {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, int64(len(r.Body)), 10)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, "\r\n"...)

	if r.hasBody {
		buf = append(buf, r.Body...)
	}
	return buf, nil
}

// InternalError returns the encoded 500 response sent when a request fails.
func InternalError() []byte {
	out := make([]byte, len(internalError))
	copy(out, internalError)
	return out
}
