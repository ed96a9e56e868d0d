package server

import (
	"errors"
	"fmt"

	"github.com/vango-dev/poolserve/pkg/workerpool"
)

var (
	// ErrInvalidConfig is returned when a ServerConfig cannot start a server.
	// It matches workerpool.ErrInvalidConfig, so a zero thread count surfaces
	// the same error whichever layer catches it.
	ErrInvalidConfig = workerpool.ErrInvalidConfig

	// ErrServerStopped is returned by operations that need a live listener.
	ErrServerStopped = errors.New("server: stopped")
)

// BindError reports a failure to listen on the configured address.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("server: bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// ConnError wraps a transport failure with the peer and operation involved.
type ConnError struct {
	Remote string
	Op     string // accept, read, write
	Err    error
}

func (e *ConnError) Error() string {
	if e.Remote == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: %s %s: %v", e.Op, e.Remote, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a panic recovered while serving a connection.
type HandlerError struct {
	Remote string
	Panic  any
	Stack  []byte
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("server: handler panic for %s: %v", e.Remote, e.Panic)
}

// Unwrap returns the panic value when it is an error.
func (e *HandlerError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}
