package sensors

import (
	"fmt"
	"image/color"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/world"
)

// Channel selects which part of a light's color a LightSensor responds to.
type Channel string

const (
	ChannelAll   Channel = ""
	ChannelRed   Channel = "red"
	ChannelGreen Channel = "green"
	ChannelBlue  Channel = "blue"
)

func (c Channel) factor(col color.RGBA) float64 {
	switch c {
	case ChannelRed:
		return float64(col.R) / 255
	case ChannelGreen:
		return float64(col.G) / 255
	case ChannelBlue:
		return float64(col.B) / 255
	default:
		return 1
	}
}

func (c Channel) valid() bool {
	switch c {
	case ChannelAll, ChannelRed, ChannelGreen, ChannelBlue:
		return true
	}
	return false
}

// LightConfig configures a LightSensor.
type LightConfig struct {
	// MaxReading clamps the summed intensity.
	MaxReading float64
	// MinDistance floors the distance used in the inverse-square falloff.
	MinDistance float64
	Channel     Channel
}

func DefaultLightConfig() LightConfig {
	return LightConfig{MaxReading: 1, MinDistance: 0.1}
}

func (c LightConfig) validate() error {
	if !geometry.Finite(c.MaxReading) || c.MaxReading <= 0 {
		return fmt.Errorf("%w: light sensor max reading %g must be positive", world.ErrConfiguration, c.MaxReading)
	}
	if !geometry.Finite(c.MinDistance) || c.MinDistance <= 0 {
		return fmt.Errorf("%w: light sensor min distance %g must be positive", world.ErrConfiguration, c.MinDistance)
	}
	if !c.Channel.valid() {
		return fmt.Errorf("%w: unknown light channel %q", world.ErrConfiguration, c.Channel)
	}
	return nil
}

// LightSensor sums intensity/d² over every light it can see. Walls occlude
// lights, robots do not.
type LightSensor struct {
	name    string
	mount   world.Mount
	cfg     LightConfig
	reading float64
}

func NewLightSensor(name string, mount world.Mount, cfg LightConfig) (*LightSensor, error) {
	if err := validateMount(name, mount); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &LightSensor{name: name, mount: mount, cfg: cfg}, nil
}

func (s *LightSensor) Name() string           { return s.name }
func (s *LightSensor) Kind() world.DeviceKind { return world.KindLight }
func (s *LightSensor) Mount() world.Mount     { return s.mount }
func (s *LightSensor) Config() LightConfig    { return s.cfg }
func (s *LightSensor) Reading() float64       { return s.reading }

// Update implements world.Device.
func (s *LightSensor) Update(w *world.World, r *world.Robot) {
	origin := s.mount.Origin(r.Pose())
	minSq := s.cfg.MinDistance * s.cfg.MinDistance

	total := 0.0
	for _, l := range w.Lights() {
		if !s.visible(w, origin, l.Position) {
			continue
		}
		dsq := origin.DistSq(l.Position)
		if dsq < minSq {
			dsq = minSq
		}
		v := l.Intensity * s.cfg.Channel.factor(l.Color) / dsq
		if geometry.Finite(v) {
			total += v
		}
	}
	s.reading = geometry.Clamp(total, 0, s.cfg.MaxReading)
}

func (s *LightSensor) visible(w *world.World, from, to geometry.Vec) bool {
	d := from.Dist(to)
	if d <= geometry.Epsilon {
		return true
	}
	ray := geometry.Ray{Origin: from, Dir: to.Sub(from).Scale(1 / d), Max: d}
	hit, ok := w.CastRay(ray, world.OnlyWalls())
	return !ok || hit.Distance >= d-geometry.Epsilon
}

// Snapshot implements world.Device.
func (s *LightSensor) Snapshot() world.DeviceSnapshot {
	return world.DeviceSnapshot{
		Name:   s.name,
		Kind:   world.KindLight,
		Mount:  s.mount,
		Values: []float64{s.reading},
	}
}
