package sim

import "errors"

// Scheduler errors
var (
	// ErrRunning is returned by Step and Run while another Run is in
	// progress on the same simulation.
	ErrRunning = errors.New("simulation is running")

	// ErrFailed wraps the invariant failure that stopped a simulation. Once
	// failed, a simulation refuses to step again.
	ErrFailed = errors.New("simulation failed")

	// ErrControl wraps an error returned by the control callback.
	ErrControl = errors.New("control callback failed")
)
