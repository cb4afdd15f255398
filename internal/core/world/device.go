package world

import (
	"image/color"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
)

// DeviceKind tags the sensor variant behind a Device.
type DeviceKind uint8

const (
	KindRange DeviceKind = iota + 1
	KindCamera
	KindLight
)

func (k DeviceKind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindCamera:
		return "camera"
	case KindLight:
		return "light"
	default:
		return "unknown"
	}
}

// MarshalText lets kinds appear by name in JSON snapshots.
func (k DeviceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Mount places a device on its robot: Offset is in the robot frame (+x
// forward, +y left), Angle is relative to the robot heading.
type Mount struct {
	Offset geometry.Vec `json:"offset"`
	Angle  float64      `json:"angle"`
}

// Origin returns the device position in world coordinates.
func (m Mount) Origin(p kinematics.Pose) geometry.Vec { return p.ToWorld(m.Offset) }

// Heading returns the device's absolute facing.
func (m Mount) Heading(p kinematics.Pose) float64 {
	return geometry.NormalizeAngle(p.Heading + m.Angle)
}

// Device is a sensor mounted on a robot. Update recomputes the reading from
// the robot's committed pose and the world geometry; it is called once per
// step by the scheduler and must not mutate the world.
type Device interface {
	Name() string
	Kind() DeviceKind
	Mount() Mount
	Update(w *World, r *Robot)
	Snapshot() DeviceSnapshot
}

// DeviceSnapshot is a detached copy of a device's configuration and latest
// reading. Values holds the numeric reading (range: distance and ratio;
// light: total intensity; camera: per-column hit distances). Pixels is set
// for cameras only, row-major Width×Height.
type DeviceSnapshot struct {
	Name   string       `json:"name"`
	Kind   DeviceKind   `json:"kind"`
	Mount  Mount        `json:"mount"`
	Values []float64    `json:"values"`
	Pixels []color.RGBA `json:"pixels,omitempty"`
	Width  int          `json:"width,omitempty"`
	Height int          `json:"height,omitempty"`
}
