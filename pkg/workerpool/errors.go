package workerpool

import "errors"

var (
	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrPoolClosed is the panic value of Execute on a closed pool.
	ErrPoolClosed = errors.New("workerpool: pool closed")
)
