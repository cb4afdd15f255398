// Package kinematics integrates differential-drive motion with a fixed time
// step. It knows nothing about obstacles: the pose it produces is only a
// candidate until the collision resolver accepts it.
package kinematics

import (
	"math"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// Pose is a robot position and heading. Heading is in radians, in [-π, π).
type Pose struct {
	X       float64 `json:"x" yaml:"x" toml:"x"`
	Y       float64 `json:"y" yaml:"y" toml:"y"`
	Heading float64 `json:"heading" yaml:"heading" toml:"heading"`
}

// NewPose returns a pose with a normalised heading.
func NewPose(x, y, heading float64) Pose {
	return Pose{X: x, Y: y, Heading: geometry.NormalizeAngle(heading)}
}

// Position returns the pose location as a vector.
func (p Pose) Position() geometry.Vec { return geometry.V(p.X, p.Y) }

// Direction returns the unit heading vector.
func (p Pose) Direction() geometry.Vec { return geometry.FromAngle(p.Heading) }

// Moved reports whether q has a different location than p.
func (p Pose) Moved(q Pose) bool { return p.X != q.X || p.Y != q.Y }

// ToWorld maps a point expressed in the robot frame (+x forward, +y left)
// into world coordinates.
func (p Pose) ToWorld(local geometry.Vec) geometry.Vec {
	return p.Position().Add(local.Rotate(p.Heading))
}

// IsFinite reports whether every component is a finite number.
func (p Pose) IsFinite() bool {
	return geometry.Finite(p.X) && geometry.Finite(p.Y) && geometry.Finite(p.Heading)
}

// Command holds the velocity set points of a robot: Forward in world units
// per second along the heading, Turn in radians per second
// (counter-clockwise positive).
type Command struct {
	Forward float64 `json:"forward" yaml:"forward" toml:"forward"`
	Turn    float64 `json:"turn" yaml:"turn" toml:"turn"`
}

// Idle reports whether the command produces no motion.
func (c Command) Idle() bool { return c.Forward == 0 && c.Turn == 0 }

// Integrate advances p by one step of length dt under command c:
//
//	heading' = heading + turn·dt
//	x'       = x + forward·dt·cos(heading)
//	y'       = y + forward·dt·sin(heading)
//
// Translation uses the heading at the start of the step. When any input or
// result is not a finite number the pose is returned unchanged and ok is
// false.
func Integrate(p Pose, c Command, dt float64) (next Pose, ok bool) {
	if !p.IsFinite() || !geometry.Finite(dt) || dt < 0 {
		return p, false
	}
	if !geometry.Finite(c.Forward) || !geometry.Finite(c.Turn) {
		return p, false
	}
	if c.Idle() || dt == 0 {
		return p, true
	}

	s, co := math.Sincos(p.Heading)
	dist := c.Forward * dt
	next = Pose{
		X:       p.X + dist*co,
		Y:       p.Y + dist*s,
		Heading: geometry.NormalizeAngle(p.Heading + c.Turn*dt),
	}
	if !next.IsFinite() {
		return p, false
	}
	return next, true
}
