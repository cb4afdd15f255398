// Package sensors implements the range finder, light sensor and camera that
// mount on robots. Every sensor is recomputed from the committed robot pose
// and the world geometry once per step; constructors reject bad parameters
// with world.ErrConfiguration.
package sensors

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/world"
)

// Spec describes any sensor variant in one flat, file-friendly structure.
// Fields that do not apply to Kind are ignored. Numeric parameters are
// pointers: nil takes the variant's default, anything set, 0 included, is
// validated as given. Angles are in radians.
type Spec struct {
	Kind   string       `json:"kind" yaml:"kind" toml:"kind"`
	Name   string       `json:"name" yaml:"name" toml:"name"`
	Offset geometry.Vec `json:"offset" yaml:"offset" toml:"offset"`
	Angle  float64      `json:"angle" yaml:"angle" toml:"angle"`

	MaxRange *float64 `json:"max_range,omitempty" yaml:"max_range,omitempty" toml:"max_range,omitempty"`

	// range
	Cone float64 `json:"cone,omitempty" yaml:"cone,omitempty" toml:"cone,omitempty"`

	// light
	MaxReading  *float64 `json:"max_reading,omitempty" yaml:"max_reading,omitempty" toml:"max_reading,omitempty"`
	MinDistance *float64 `json:"min_distance,omitempty" yaml:"min_distance,omitempty" toml:"min_distance,omitempty"`
	Channel     string   `json:"channel,omitempty" yaml:"channel,omitempty" toml:"channel,omitempty"`

	// camera
	Columns    *int     `json:"columns,omitempty" yaml:"columns,omitempty" toml:"columns,omitempty"`
	Rows       *int     `json:"rows,omitempty" yaml:"rows,omitempty" toml:"rows,omitempty"`
	FOV        *float64 `json:"fov,omitempty" yaml:"fov,omitempty" toml:"fov,omitempty"`
	ColorFade  *float64 `json:"color_fade,omitempty" yaml:"color_fade,omitempty" toml:"color_fade,omitempty"`
	SizeFade   *float64 `json:"size_fade,omitempty" yaml:"size_fade,omitempty" toml:"size_fade,omitempty"`
	Mode       string   `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	SkyColor   string   `json:"sky,omitempty" yaml:"sky,omitempty" toml:"sky,omitempty"`
	RobotRatio *float64 `json:"robot_height,omitempty" yaml:"robot_height,omitempty" toml:"robot_height,omitempty"`
}

// New builds the sensor described by spec.
func New(spec Spec) (world.Device, error) {
	mount := world.Mount{Offset: spec.Offset, Angle: spec.Angle}
	switch strings.ToLower(spec.Kind) {
	case world.KindRange.String():
		cfg := DefaultRangeConfig()
		if spec.MaxRange != nil {
			cfg.MaxRange = *spec.MaxRange
		}
		cfg.Width = spec.Cone
		return NewRangeSensor(spec.Name, mount, cfg)

	case world.KindLight.String():
		cfg := DefaultLightConfig()
		if spec.MaxReading != nil {
			cfg.MaxReading = *spec.MaxReading
		}
		if spec.MinDistance != nil {
			cfg.MinDistance = *spec.MinDistance
		}
		cfg.Channel = Channel(strings.ToLower(spec.Channel))
		return NewLightSensor(spec.Name, mount, cfg)

	case world.KindCamera.String():
		cfg := DefaultCameraConfig()
		if spec.Columns != nil {
			cfg.Width = *spec.Columns
		}
		if spec.Rows != nil {
			cfg.Height = *spec.Rows
		}
		if spec.FOV != nil {
			cfg.FOV = *spec.FOV
		}
		if spec.MaxRange != nil {
			cfg.MaxRange = *spec.MaxRange
		}
		if spec.ColorFade != nil {
			cfg.ColorsFadeWithDistance = *spec.ColorFade
		}
		if spec.SizeFade != nil {
			cfg.SizeFadeWithDistance = *spec.SizeFade
		}
		if spec.RobotRatio != nil {
			cfg.RobotHeight = *spec.RobotRatio
		}
		if spec.Mode != "" {
			cfg.Mode = CameraMode(strings.ToLower(spec.Mode))
		}
		if spec.SkyColor != "" {
			sky, err := ParseColor(spec.SkyColor)
			if err != nil {
				return nil, err
			}
			cfg.Sky = sky
		}
		return NewCamera(spec.Name, mount, cfg)

	default:
		return nil, fmt.Errorf("%w: unknown sensor kind %q", world.ErrConfiguration, spec.Kind)
	}
}

func validateMount(name string, m world.Mount) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: sensor name is required", world.ErrConfiguration)
	}
	if !m.Offset.IsFinite() || !geometry.Finite(m.Angle) {
		return fmt.Errorf("%w: sensor %q mount is not finite", world.ErrConfiguration, name)
	}
	return nil
}

// ParseColor reads "#rrggbb", "#rrggbbaa" or one of a few color names.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	var c color.RGBA
	c.A = 255
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = errors.New("unrecognised format")
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: color %q: %v", world.ErrConfiguration, s, err)
	}
	return c, nil
}

var namedColors = map[string]color.RGBA{
	"black":  {A: 255},
	"white":  {R: 255, G: 255, B: 255, A: 255},
	"red":    {R: 255, A: 255},
	"green":  {G: 128, A: 255},
	"lime":   {G: 255, A: 255},
	"blue":   {B: 255, A: 255},
	"navy":   {B: 128, A: 255},
	"yellow": {R: 255, G: 255, A: 255},
	"gray":   {R: 128, G: 128, B: 128, A: 255},
	"purple": {R: 128, B: 128, A: 255},
	"orange": {R: 255, G: 165, A: 255},
}
