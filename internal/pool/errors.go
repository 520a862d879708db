package pool

import "errors"

// Sentinel errors for pool lifecycle operations.
var (
	ErrPoolNotStarted     = errors.New("task pool not started")
	ErrPoolStopped        = errors.New("task pool stopped")
	ErrPoolAlreadyStarted = errors.New("task pool already started")
	ErrStopTimeout        = errors.New("timeout waiting for tasks to finish")
	ErrNilTask            = errors.New("task function cannot be nil")
)
