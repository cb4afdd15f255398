// Package config loads scenario files describing an arena, its robots and
// the simulation settings, and builds a world from them. YAML, TOML and JSON
// are accepted; the format is picked from the file extension.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/sensors"
	"github.com/zeusync/robosim/internal/core/sim"
	"github.com/zeusync/robosim/internal/core/world"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported scenario format")

// Scenario is the whole content of a scenario file.
type Scenario struct {
	World      WorldConfig      `json:"world" yaml:"world" toml:"world"`
	Robots     []RobotConfig    `json:"robots" yaml:"robots" toml:"robots"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation" toml:"simulation"`
}

type WorldConfig struct {
	Width        float64         `json:"width" yaml:"width" toml:"width"`
	Height       float64         `json:"height" yaml:"height" toml:"height"`
	Background   string          `json:"background,omitempty" yaml:"background,omitempty" toml:"background,omitempty"`
	SpatialIndex *bool           `json:"spatial_index,omitempty" yaml:"spatial_index,omitempty" toml:"spatial_index,omitempty"`
	Walls        []WallConfig    `json:"walls,omitempty" yaml:"walls,omitempty" toml:"walls,omitempty"`
	Polygons     []PolygonConfig `json:"polygons,omitempty" yaml:"polygons,omitempty" toml:"polygons,omitempty"`
	Lights       []LightConfig   `json:"lights,omitempty" yaml:"lights,omitempty" toml:"lights,omitempty"`
}

type WallConfig struct {
	From  geometry.Vec `json:"from" yaml:"from" toml:"from"`
	To    geometry.Vec `json:"to" yaml:"to" toml:"to"`
	Color string       `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
}

// PolygonConfig is a closed solid obstacle.
type PolygonConfig struct {
	Points []geometry.Vec `json:"points" yaml:"points" toml:"points"`
	Color  string         `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
}

type LightConfig struct {
	Position  geometry.Vec `json:"position" yaml:"position" toml:"position"`
	Intensity float64      `json:"intensity" yaml:"intensity" toml:"intensity"`
	Color     string       `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
}

// RobotConfig places one robot. Zero radius and empty color take the world
// defaults; an empty ID is generated.
type RobotConfig struct {
	Name    string             `json:"name" yaml:"name" toml:"name"`
	ID      string             `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Pose    kinematics.Pose    `json:"pose" yaml:"pose" toml:"pose"`
	Radius  float64            `json:"radius,omitempty" yaml:"radius,omitempty" toml:"radius,omitempty"`
	Color   string             `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Command kinematics.Command `json:"command" yaml:"command" toml:"command"`
	Devices []sensors.Spec     `json:"devices,omitempty" yaml:"devices,omitempty" toml:"devices,omitempty"`
}

// SimulationConfig holds the scheduler and process settings.
type SimulationConfig struct {
	TimeStep float64 `json:"time_step" yaml:"time_step" toml:"time_step"`
	// Steps to run; negative runs until interrupted.
	Steps    int    `json:"steps" yaml:"steps" toml:"steps"`
	RealTime bool   `json:"real_time" yaml:"real_time" toml:"real_time"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// Listen is the snapshot stream address; empty disables the server.
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty" toml:"listen,omitempty"`
}

// DefaultScenario is an empty 10×10 arena. Files are decoded on top of it,
// so anything a file leaves out keeps these values.
func DefaultScenario() *Scenario {
	return &Scenario{
		World: WorldConfig{Width: 10, Height: 10},
		Simulation: SimulationConfig{
			TimeStep: sim.DefaultTimeStep,
			Steps:    1000,
			LogLevel: "info",
		},
	}
}

// Load reads the scenario at path, choosing the decoder from the extension.
func Load(path string) (*Scenario, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".toml" {
		s := DefaultScenario()
		md, err := toml.DecodeFile(path, s)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if err := undecoded(md); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return s, nil
	}

	var load func(io.Reader) (*Scenario, error)
	switch ext {
	case ".yaml", ".yml":
		load = LoadYAML
	case ".json":
		load = LoadJSON
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// LoadYAML decodes a scenario from YAML. Unknown keys are rejected.
func LoadYAML(r io.Reader) (*Scenario, error) {
	s := DefaultScenario()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadJSON decodes a scenario from JSON. Unknown keys are rejected.
func LoadJSON(r io.Reader) (*Scenario, error) {
	s := DefaultScenario()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadTOML decodes a scenario from TOML. Unknown keys are rejected.
func LoadTOML(r io.Reader) (*Scenario, error) {
	s := DefaultScenario()
	md, err := toml.NewDecoder(r).Decode(s)
	if err != nil {
		return nil, err
	}
	if err := undecoded(md); err != nil {
		return nil, err
	}
	return s, nil
}

func undecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Validate checks everything that can be checked without building the
// world and reports all problems at once. Geometric conflicts such as
// overlapping robots are reported by Build.
func (s *Scenario) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !geometry.Finite(s.World.Width) || !geometry.Finite(s.World.Height) || s.World.Width <= 0 || s.World.Height <= 0 {
		add("world extent %gx%g must be positive", s.World.Width, s.World.Height)
	}
	if err := checkColor(s.World.Background); err != nil {
		add("background: %w", err)
	}
	for i, wc := range s.World.Walls {
		if err := checkColor(wc.Color); err != nil {
			add("wall %d: %w", i, err)
		}
	}
	for i, pc := range s.World.Polygons {
		if len(pc.Points) < 3 {
			add("polygon %d: needs at least 3 points, got %d", i, len(pc.Points))
		}
		if err := checkColor(pc.Color); err != nil {
			add("polygon %d: %w", i, err)
		}
	}
	for i, lc := range s.World.Lights {
		if err := checkColor(lc.Color); err != nil {
			add("light %d: %w", i, err)
		}
	}

	names := make(map[string]struct{}, len(s.Robots))
	for i, rc := range s.Robots {
		label := rc.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if rc.Name != "" {
			if _, dup := names[rc.Name]; dup {
				add("robot %s: duplicate name", label)
			}
			names[rc.Name] = struct{}{}
		}
		if rc.ID != "" {
			if _, err := uuid.Parse(rc.ID); err != nil {
				add("robot %s: id: %w", label, err)
			}
		}
		if rc.Radius < 0 {
			add("robot %s: radius %g must be positive", label, rc.Radius)
		}
		if err := checkColor(rc.Color); err != nil {
			add("robot %s: %w", label, err)
		}
		devices := make(map[string]struct{}, len(rc.Devices))
		for _, spec := range rc.Devices {
			if _, dup := devices[spec.Name]; dup {
				add("robot %s: duplicate device %q", label, spec.Name)
			}
			devices[spec.Name] = struct{}{}
			if _, err := sensors.New(spec); err != nil {
				add("robot %s: device %q: %w", label, spec.Name, err)
			}
		}
	}

	if !geometry.Finite(s.Simulation.TimeStep) || s.Simulation.TimeStep <= 0 {
		add("time step %g must be positive", s.Simulation.TimeStep)
	}
	if _, err := log.ParseLevel(s.Simulation.LogLevel); err != nil {
		add("%w", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", world.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Build validates the scenario and constructs its world through the public
// world constructors, so every placement check applies.
func (s *Scenario) Build(logger log.Log) (*world.World, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	opts := []world.Option{world.WithLogger(logger)}
	if s.World.Background != "" {
		bg, _ := parseColor(s.World.Background)
		opts = append(opts, world.WithBackground(bg))
	}
	if s.World.SpatialIndex != nil {
		opts = append(opts, world.WithSpatialIndex(*s.World.SpatialIndex))
	}
	for _, wc := range s.World.Walls {
		c, _ := parseColor(wc.Color)
		opts = append(opts, world.WithWalls(world.Wall{Segment: geometry.Segment{A: wc.From, B: wc.To}, Color: c}))
	}
	for _, pc := range s.World.Polygons {
		c, _ := parseColor(pc.Color)
		opts = append(opts, world.WithPolygonWall(geometry.Poly(pc.Points...), c))
	}
	for _, lc := range s.World.Lights {
		c, _ := parseColor(lc.Color)
		opts = append(opts, world.WithLights(world.Light{Position: lc.Position, Intensity: lc.Intensity, Color: c}))
	}

	w, err := world.New(s.World.Width, s.World.Height, opts...)
	if err != nil {
		return nil, err
	}
	for _, rc := range s.Robots {
		if err := addRobot(w, rc); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func addRobot(w *world.World, rc RobotConfig) error {
	opts := []world.RobotOption{world.WithCommand(rc.Command)}
	if rc.Radius > 0 {
		opts = append(opts, world.WithRadius(rc.Radius))
	}
	if rc.Color != "" {
		c, _ := parseColor(rc.Color)
		opts = append(opts, world.WithColor(c))
	}
	if rc.ID != "" {
		opts = append(opts, world.WithID(uuid.MustParse(rc.ID)))
	}

	r, err := w.AddRobot(rc.Name, rc.Pose, opts...)
	if err != nil {
		return err
	}
	for _, spec := range rc.Devices {
		d, err := sensors.New(spec)
		if err != nil {
			return fmt.Errorf("robot %q: %w", r.Name(), err)
		}
		if err := r.AddDevice(d); err != nil {
			return fmt.Errorf("robot %q: %w", r.Name(), err)
		}
	}
	return nil
}

// SimOptions returns the scheduler options the scenario asks for.
func (s *Scenario) SimOptions(logger log.Log) []sim.Option {
	return []sim.Option{
		sim.WithTimeStep(s.Simulation.TimeStep),
		sim.WithLogger(logger),
	}
}

func (s *Scenario) RunOptions() sim.RunOptions {
	return sim.RunOptions{Steps: s.Simulation.Steps, RealTime: s.Simulation.RealTime}
}

func checkColor(s string) error {
	_, err := parseColor(s)
	return err
}

// parseColor maps "" to the zero color, which the world replaces with the
// default for the kind of object.
func parseColor(s string) (color.RGBA, error) {
	if s == "" {
		return color.RGBA{}, nil
	}
	return sensors.ParseColor(s)
}
