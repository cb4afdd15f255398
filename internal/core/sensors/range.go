package sensors

import (
	"fmt"
	"math"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/world"
)

// RangeConfig configures a RangeSensor.
type RangeConfig struct {
	// MaxRange is the farthest distance the sensor reports.
	MaxRange float64
	// Width is the sonar cone in radians. Zero gives a single laser ray;
	// anything wider casts three rays at -Width/2, 0 and +Width/2 and keeps
	// the nearest.
	Width float64
}

// DefaultRangeConfig returns a laser with a 20 unit range.
func DefaultRangeConfig() RangeConfig {
	return RangeConfig{MaxRange: 20}
}

func (c RangeConfig) validate() error {
	if !geometry.Finite(c.MaxRange) || c.MaxRange <= 0 {
		return fmt.Errorf("%w: range sensor max range %g must be positive", world.ErrConfiguration, c.MaxRange)
	}
	if !geometry.Finite(c.Width) || c.Width < 0 || c.Width >= 2*math.Pi {
		return fmt.Errorf("%w: range sensor width %g must be in [0, 2π)", world.ErrConfiguration, c.Width)
	}
	return nil
}

// RangeSensor reports the distance to the nearest wall or robot in front of
// its mount point. Its own robot is invisible to it.
type RangeSensor struct {
	name   string
	mount  world.Mount
	cfg    RangeConfig
	dist   float64
	offset []float64
}

// NewRangeSensor validates cfg and returns a sensor reading MaxRange until
// its first update.
func NewRangeSensor(name string, mount world.Mount, cfg RangeConfig) (*RangeSensor, error) {
	if err := validateMount(name, mount); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &RangeSensor{name: name, mount: mount, cfg: cfg, dist: cfg.MaxRange, offset: []float64{0}}
	if cfg.Width > 0 {
		s.offset = []float64{-cfg.Width / 2, 0, cfg.Width / 2}
	}
	return s, nil
}

func (s *RangeSensor) Name() string           { return s.name }
func (s *RangeSensor) Kind() world.DeviceKind { return world.KindRange }
func (s *RangeSensor) Mount() world.Mount     { return s.mount }
func (s *RangeSensor) Config() RangeConfig    { return s.cfg }

// Distance returns the last reading in world units.
func (s *RangeSensor) Distance() float64 { return s.dist }

// Reading returns Distance as a ratio of MaxRange, 1 meaning nothing seen.
func (s *RangeSensor) Reading() float64 { return s.dist / s.cfg.MaxRange }

// Update implements world.Device.
func (s *RangeSensor) Update(w *world.World, r *world.Robot) {
	pose := r.Pose()
	origin := s.mount.Origin(pose)
	heading := s.mount.Heading(pose)

	best := s.cfg.MaxRange
	for _, off := range s.offset {
		ray := geometry.NewRay(origin, heading+off, s.cfg.MaxRange)
		if hit, ok := w.CastRay(ray, world.IgnoreRobot(r.ID())); ok && hit.Distance < best {
			best = hit.Distance
		}
	}
	s.dist = best
}

// Snapshot implements world.Device. Values holds distance then ratio.
func (s *RangeSensor) Snapshot() world.DeviceSnapshot {
	return world.DeviceSnapshot{
		Name:   s.name,
		Kind:   world.KindRange,
		Mount:  s.mount,
		Values: []float64{s.dist, s.Reading()},
	}
}
