package world

import "errors"

// World errors
var (
	// ErrConfiguration marks bad world, robot or device parameters. It is
	// returned at construction time, never while stepping.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound is returned for unknown or removed robots and devices.
	ErrNotFound = errors.New("not found")

	// ErrCollisionPolicyViolation is returned when a pose that overlaps an
	// obstacle is committed. The resolver never produces such a pose, so
	// reaching it is an internal invariant failure.
	ErrCollisionPolicyViolation = errors.New("collision policy violation")
)
