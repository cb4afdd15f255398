package world

import (
	"fmt"
	"image/color"
	"math"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/collision"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
	"github.com/zeusync/robosim/internal/core/observability/log"
)

// DefaultRobotRadius is used when AddRobot gets no WithRadius option.
const DefaultRobotRadius = 0.25

// DefaultRobotColor is used when AddRobot gets no WithColor option.
var DefaultRobotColor = color.RGBA{R: 255, A: 255}

// Robot is a circular differential-drive robot owned by a World. Its pose and
// stall flag change only through the scheduler's commit; callers steer it
// with Forward, Turn, Reverse and Stop.
type Robot struct {
	id     uuid.UUID
	name   string
	seq    int
	radius float64
	color  color.RGBA

	pose        kinematics.Pose
	cmd         kinematics.Command
	lastForward float64
	stalled     bool

	devices []Device
	world   *World
	entry   *bodyEntry
}

// RobotOption configures AddRobot.
type RobotOption func(*Robot)

func WithRadius(r float64) RobotOption {
	return func(rb *Robot) { rb.radius = r }
}

func WithColor(c color.RGBA) RobotOption {
	return func(rb *Robot) { rb.color = c }
}

// WithID fixes the robot identity instead of generating a random one.
func WithID(id uuid.UUID) RobotOption {
	return func(rb *Robot) { rb.id = id }
}

// WithCommand sets the initial velocity command.
func WithCommand(c kinematics.Command) RobotOption {
	return func(rb *Robot) {
		rb.cmd = c
		if c.Forward != 0 {
			rb.lastForward = math.Abs(c.Forward)
		}
	}
}

func (r *Robot) ID() uuid.UUID               { return r.id }
func (r *Robot) Name() string                { return r.name }
func (r *Robot) Radius() float64             { return r.radius }
func (r *Robot) Color() color.RGBA           { return r.color }
func (r *Robot) Pose() kinematics.Pose       { return r.pose }
func (r *Robot) Command() kinematics.Command { return r.cmd }
func (r *Robot) Stalled() bool               { return r.stalled }

// Attached reports whether the robot still belongs to a world.
func (r *Robot) Attached() bool { return r.world != nil }

// Body returns the robot's collision shape at its committed pose.
func (r *Robot) Body() collision.Body {
	return collision.Body{ID: r.id, Circle: geometry.Circle{C: r.pose.Position(), R: r.radius}}
}

func (r *Robot) String() string {
	return fmt.Sprintf("robot %q (%s)", r.name, r.id)
}

func (r *Robot) checkAttached() error {
	if r.world == nil {
		return fmt.Errorf("%w: %s was removed", ErrNotFound, r)
	}
	return nil
}

// Forward sets the translational velocity, in world units per second.
// Negative values drive backwards; NaN and infinities mean zero.
func (r *Robot) Forward(v float64) error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	r.cmd.Forward = r.finite("forward", v)
	if r.cmd.Forward != 0 {
		r.lastForward = math.Abs(r.cmd.Forward)
	}
	return nil
}

// Turn sets the rotational velocity, in radians per second, counter-clockwise
// positive.
func (r *Robot) Turn(w float64) error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	r.cmd.Turn = r.finite("turn", w)
	return nil
}

// finite replaces a NaN or infinite velocity with zero motion.
func (r *Robot) finite(command string, v float64) float64 {
	if geometry.Finite(v) {
		return v
	}
	r.world.logger.Warn("non-finite command, using zero",
		log.String("robot", r.name),
		log.String("command", command),
		log.Float64("value", v),
	)
	return 0
}

// Reverse drives backwards at the magnitude of the last non-zero forward
// command, even if the robot has been stopped since.
func (r *Robot) Reverse() error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	r.cmd.Forward = -r.lastForward
	return nil
}

// Stop zeroes both velocity commands.
func (r *Robot) Stop() error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	r.cmd = kinematics.Command{}
	return nil
}

// AddDevice mounts d on the robot. A device belongs to at most one robot and
// device names are unique per robot. Its reading stays at its initial value
// until the next step.
func (r *Robot) AddDevice(d Device) error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrConfiguration)
	}
	if owner, taken := r.world.deviceOwners[d]; taken {
		return fmt.Errorf("%w: device %q already mounted on %s", ErrConfiguration, d.Name(), owner)
	}
	for _, existing := range r.devices {
		if existing.Name() == d.Name() {
			return fmt.Errorf("%w: %s already has a device named %q", ErrConfiguration, r, d.Name())
		}
	}
	r.devices = append(r.devices, d)
	r.world.deviceOwners[d] = r
	r.world.logger.Debug("device attached", deviceFields(r, d)...)
	return nil
}

// RemoveDevice unmounts the named device.
func (r *Robot) RemoveDevice(name string) error {
	if err := r.checkAttached(); err != nil {
		return err
	}
	for i, d := range r.devices {
		if d.Name() == name {
			r.devices = append(r.devices[:i:i], r.devices[i+1:]...)
			delete(r.world.deviceOwners, d)
			r.world.logger.Debug("device detached", deviceFields(r, d)...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no device named %q", ErrNotFound, r, name)
}

// Devices returns the mounted devices in attachment order.
func (r *Robot) Devices() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Device looks a mounted device up by name.
func (r *Robot) Device(name string) (Device, error) {
	for _, d := range r.devices {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no device named %q", ErrNotFound, r, name)
}

// UpdateDevices recomputes every mounted device against the world.
func (r *Robot) UpdateDevices() {
	if r.world == nil {
		return
	}
	for _, d := range r.devices {
		d.Update(r.world, r)
	}
}
