package httpwire

import "errors"

// Sentinel errors for request parsing and response encoding.
var (
	// ErrMalformedRequest is returned when the request head is missing or a
	// request line token is absent.
	ErrMalformedRequest = errors.New("httpwire: malformed request")

	// ErrUnsupportedMethod is returned for any method other than GET.
	ErrUnsupportedMethod = errors.New("httpwire: unsupported method")

	// ErrUnsupportedVersion is returned for any version other than HTTP/1.1.
	ErrUnsupportedVersion = errors.New("httpwire: unsupported version")

	// ErrMalformedPath is returned when a request path cannot be mapped to content.
	ErrMalformedPath = errors.New("httpwire: malformed path")

	// ErrUnknownStatusCode is returned when encoding a status without a reason phrase.
	ErrUnknownStatusCode = errors.New("httpwire: unknown status code")

	// ErrIO wraps socket and storage failures.
	ErrIO = errors.New("httpwire: i/o error")
)
