package world

import (
	"encoding/binary"
	"image/color"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
)

// Snapshot is a detached, read-only copy of the world state. Nothing in it
// aliases live world data.
type Snapshot struct {
	Width      float64            `json:"width"`
	Height     float64            `json:"height"`
	Time       float64            `json:"time"`
	Steps      uint64             `json:"steps"`
	Background color.RGBA         `json:"background"`
	Walls      []WallSnapshot     `json:"walls"`
	Lights     []Light            `json:"lights"`
	Robots     []RobotSnapshot    `json:"robots"`
	Solids     []geometry.Polygon `json:"solids,omitempty"`
}

// WallSnapshot is one wall in a Snapshot.
type WallSnapshot struct {
	From     geometry.Vec `json:"from"`
	To       geometry.Vec `json:"to"`
	Color    color.RGBA   `json:"color"`
	Boundary bool         `json:"boundary,omitempty"`
}

// RobotSnapshot is one robot in a Snapshot.
type RobotSnapshot struct {
	ID      uuid.UUID          `json:"id"`
	Name    string             `json:"name"`
	Pose    kinematics.Pose    `json:"pose"`
	Radius  float64            `json:"radius"`
	Color   color.RGBA         `json:"color"`
	Command kinematics.Command `json:"command"`
	Stalled bool               `json:"stalled"`
	Devices []DeviceSnapshot   `json:"devices"`
}

// Snapshot copies the current state.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Width:      w.width,
		Height:     w.height,
		Time:       w.time,
		Steps:      w.steps,
		Background: w.background,
		Walls:      make([]WallSnapshot, len(w.walls)),
		Lights:     w.Lights(),
		Robots:     make([]RobotSnapshot, len(w.robots)),
		Solids:     w.Solids(),
	}
	for i, wall := range w.walls {
		s.Walls[i] = WallSnapshot{From: wall.Segment.A, To: wall.Segment.B, Color: wall.Color, Boundary: wall.Boundary}
	}
	for i, r := range w.robots {
		s.Robots[i] = r.Snapshot()
	}
	return s
}

// Snapshot copies the robot state and its device readings.
func (r *Robot) Snapshot() RobotSnapshot {
	rs := RobotSnapshot{
		ID:      r.id,
		Name:    r.name,
		Pose:    r.pose,
		Radius:  r.radius,
		Color:   r.color,
		Command: r.cmd,
		Stalled: r.stalled,
		Devices: make([]DeviceSnapshot, len(r.devices)),
	}
	for i, d := range r.devices {
		rs.Devices[i] = cloneDeviceSnapshot(d.Snapshot())
	}
	return rs
}

func cloneDeviceSnapshot(d DeviceSnapshot) DeviceSnapshot {
	d.Values = append([]float64(nil), d.Values...)
	if d.Pixels != nil {
		d.Pixels = append([]color.RGBA(nil), d.Pixels...)
	}
	return d
}

// Robot returns the snapshot of the named robot.
func (s Snapshot) Robot(name string) (RobotSnapshot, bool) {
	for _, r := range s.Robots {
		if r.Name == name {
			return r, true
		}
	}
	return RobotSnapshot{}, false
}

// Fingerprint hashes every value in the snapshot bit for bit. Robot IDs are
// left out so two worlds built from the same description compare equal.
func (s Snapshot) Fingerprint() uint64 {
	h := fingerprint{d: xxhash.New()}
	h.putFloat(s.Width, s.Height, s.Time)
	h.putUint(s.Steps)
	h.putColor(s.Background)

	h.putUint(uint64(len(s.Walls)))
	for _, w := range s.Walls {
		h.putFloat(w.From.X, w.From.Y, w.To.X, w.To.Y)
		h.putColor(w.Color)
		h.putBool(w.Boundary)
	}
	h.putUint(uint64(len(s.Lights)))
	for _, l := range s.Lights {
		h.putFloat(l.Position.X, l.Position.Y, l.Intensity)
		h.putColor(l.Color)
	}
	h.putUint(uint64(len(s.Solids)))
	for _, p := range s.Solids {
		h.putUint(uint64(len(p.Points)))
		for _, pt := range p.Points {
			h.putFloat(pt.X, pt.Y)
		}
	}
	h.putUint(uint64(len(s.Robots)))
	for _, r := range s.Robots {
		h.putString(r.Name)
		h.putFloat(r.Pose.X, r.Pose.Y, r.Pose.Heading, r.Radius, r.Command.Forward, r.Command.Turn)
		h.putColor(r.Color)
		h.putBool(r.Stalled)
		h.putUint(uint64(len(r.Devices)))
		for _, d := range r.Devices {
			h.putString(d.Name)
			h.putUint(uint64(d.Kind), uint64(d.Width), uint64(d.Height))
			h.putFloat(d.Mount.Offset.X, d.Mount.Offset.Y, d.Mount.Angle)
			h.putUint(uint64(len(d.Values)))
			h.putFloat(d.Values...)
			h.putUint(uint64(len(d.Pixels)))
			for _, p := range d.Pixels {
				h.putColor(p)
			}
		}
	}
	return h.d.Sum64()
}

type fingerprint struct {
	d   *xxhash.Digest
	buf [8]byte
}

func (f *fingerprint) putUint(vs ...uint64) {
	for _, v := range vs {
		binary.LittleEndian.PutUint64(f.buf[:], v)
		_, _ = f.d.Write(f.buf[:])
	}
}

func (f *fingerprint) putFloat(vs ...float64) {
	for _, v := range vs {
		f.putUint(math.Float64bits(v))
	}
}

func (f *fingerprint) putBool(v bool) {
	if v {
		f.putUint(1)
		return
	}
	f.putUint(0)
}

func (f *fingerprint) putColor(c color.RGBA) {
	_, _ = f.d.Write([]byte{c.R, c.G, c.B, c.A})
}

func (f *fingerprint) putString(s string) {
	f.putUint(uint64(len(s)))
	_, _ = f.d.WriteString(s)
}
