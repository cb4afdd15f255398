package sensors

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/world"
)

// CameraMode selects how hit colors become pixels.
type CameraMode string

const (
	ModeColor CameraMode = "color"
	ModeDepth CameraMode = "depth"
	ModeGray  CameraMode = "gray"
)

// Default camera palette.
var (
	DefaultSky = color.RGBA{R: 0, G: 0, B: 128, A: 255}
	grayFill   = color.RGBA{R: 42, G: 42, B: 42, A: 255}
	black      = color.RGBA{A: 255}
)

// CameraConfig configures a Camera.
type CameraConfig struct {
	// Width is the number of columns, one ray each.
	Width int
	// Height is the number of rows. With a single row every column shows
	// its nearest hit; taller images split into sky, wall and ground bands
	// with robots drawn over the walls.
	Height int
	// FOV is the horizontal field of view in radians.
	FOV      float64
	MaxRange float64
	// ColorsFadeWithDistance darkens hits with distance: 0 no fade, 1 black
	// at the far side of the arena.
	ColorsFadeWithDistance float64
	// SizeFadeWithDistance shrinks the wall band with distance.
	SizeFadeWithDistance float64
	// RobotHeight is the height of a robot relative to a wall.
	RobotHeight float64
	Mode        CameraMode
	Sky         color.RGBA
}

func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Width:                  256,
		Height:                 128,
		FOV:                    math.Pi / 3,
		MaxRange:               1000,
		ColorsFadeWithDistance: 0.5,
		SizeFadeWithDistance:   1,
		RobotHeight:            0.25,
		Mode:                   ModeColor,
		Sky:                    DefaultSky,
	}
}

func (c CameraConfig) validate() error {
	switch {
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("%w: camera resolution %dx%d must be at least 1x1", world.ErrConfiguration, c.Width, c.Height)
	case !geometry.Finite(c.FOV) || c.FOV <= 0 || c.FOV > 2*math.Pi:
		return fmt.Errorf("%w: camera field of view %g must be in (0, 2π]", world.ErrConfiguration, c.FOV)
	case !geometry.Finite(c.MaxRange) || c.MaxRange <= 0:
		return fmt.Errorf("%w: camera max range %g must be positive", world.ErrConfiguration, c.MaxRange)
	case !fraction(c.ColorsFadeWithDistance) || !fraction(c.SizeFadeWithDistance) || !fraction(c.RobotHeight):
		return fmt.Errorf("%w: camera fade and robot height factors must be in [0, 1]", world.ErrConfiguration)
	}
	switch c.Mode {
	case ModeColor, ModeDepth, ModeGray:
	default:
		return fmt.Errorf("%w: unknown camera mode %q", world.ErrConfiguration, c.Mode)
	}
	return nil
}

func fraction(v float64) bool { return geometry.Finite(v) && v >= 0 && v <= 1 }

// Camera casts one ray per column across its field of view and renders the
// hits into a Width×Height image. Column 0 is the leftmost.
type Camera struct {
	name   string
	mount  world.Mount
	cfg    CameraConfig
	depths []float64
	pixels []color.RGBA
}

func NewCamera(name string, mount world.Mount, cfg CameraConfig) (*Camera, error) {
	if err := validateMount(name, mount); err != nil {
		return nil, err
	}
	if cfg.Sky == (color.RGBA{}) {
		cfg.Sky = DefaultSky
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Camera{
		name:   name,
		mount:  mount,
		cfg:    cfg,
		depths: make([]float64, cfg.Width),
		pixels: make([]color.RGBA, cfg.Width*cfg.Height),
	}
	for i := range c.depths {
		c.depths[i] = cfg.MaxRange
	}
	for i := range c.pixels {
		c.pixels[i] = cfg.Sky
	}
	return c, nil
}

func (c *Camera) Name() string           { return c.name }
func (c *Camera) Kind() world.DeviceKind { return world.KindCamera }
func (c *Camera) Mount() world.Mount     { return c.mount }
func (c *Camera) Config() CameraConfig   { return c.cfg }

// Depths returns the nearest hit distance of every column, MaxRange where
// nothing was hit.
func (c *Camera) Depths() []float64 { return append([]float64(nil), c.depths...) }

// At returns the pixel at column x, row y.
func (c *Camera) At(x, y int) color.RGBA { return c.pixels[y*c.cfg.Width+x] }

// Image copies the last frame into an image.
func (c *Camera) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.cfg.Width, c.cfg.Height))
	for y := 0; y < c.cfg.Height; y++ {
		for x := 0; x < c.cfg.Width; x++ {
			img.SetRGBA(x, y, c.At(x, y))
		}
	}
	return img
}

// columnAngle returns the ray angle of column i relative to the camera
// axis, counter-clockwise positive, so column 0 looks furthest left.
func (c *Camera) columnAngle(i int) float64 {
	return c.cfg.FOV/2 - (float64(i)+0.5)*c.cfg.FOV/float64(c.cfg.Width)
}

// Update implements world.Device.
func (c *Camera) Update(w *world.World, r *world.Robot) {
	pose := r.Pose()
	origin := c.mount.Origin(pose)
	heading := c.mount.Heading(pose)
	size := math.Max(w.Width(), w.Height())
	ground := w.Background()

	for i := 0; i < c.cfg.Width; i++ {
		ray := geometry.NewRay(origin, heading+c.columnAngle(i), c.cfg.MaxRange)
		hits := w.CastRayAll(ray, world.IgnoreRobot(r.ID()))

		c.depths[i] = c.cfg.MaxRange
		if len(hits) > 0 {
			c.depths[i] = hits[0].Distance
		}
		if c.cfg.Height == 1 {
			c.pixels[i] = c.cfg.Sky
			if len(hits) > 0 {
				c.pixels[i] = c.shade(hits[0], size)
			}
			continue
		}
		c.renderColumn(i, hits, size, ground)
	}
}

func (c *Camera) renderColumn(col int, hits []world.Hit, size float64, ground color.RGBA) {
	h := c.cfg.Height
	wallAt := math.Inf(1)
	high := float64(h)
	var wallColor color.RGBA
	for _, hit := range hits {
		if hit.Kind == world.HitWall || hit.Kind == world.HitBoundary {
			wallAt = hit.Distance
			s := geometry.Clamp(1-hit.Distance/size*c.cfg.SizeFadeWithDistance, 0, 1)
			high = (1 - s) * float64(h)
			wallColor = c.shade(hit, size)
			break
		}
	}

	horizon := float64(h) / 2
	for j := 0; j < h; j++ {
		var px color.RGBA
		switch {
		case float64(j) < high/2:
			px = c.backdrop(c.cfg.Sky, false, math.Abs(float64(j)-horizon)/horizon)
		case float64(j) < float64(h)-high/2:
			px = wallColor
		default:
			px = c.backdrop(ground, true, math.Abs(float64(j)-horizon)/horizon)
		}
		c.pixels[j*c.cfg.Width+col] = px
	}

	// robots in front of the wall, farthest first so the nearest ends on top
	var robots []world.Hit
	for _, hit := range hits {
		if hit.Kind == world.HitRobot && hit.Distance < wallAt {
			robots = append(robots, hit)
		}
	}
	sort.SliceStable(robots, func(a, b int) bool { return robots[a].Distance > robots[b].Distance })
	for _, hit := range robots {
		s := geometry.Clamp(1-hit.Distance/size*c.cfg.SizeFadeWithDistance, 0, 1)
		sc := geometry.Clamp(1-hit.Distance/size*c.cfg.ColorsFadeWithDistance, 0, 1)
		lift := int(math.Round(horizon * (1 - sc)))
		tall := int(math.Round(c.cfg.RobotHeight * horizon * s))
		px := c.shade(hit, size)
		for j := 0; j < tall; j++ {
			row := h - j - 1 - lift
			if row < 0 || row >= h {
				continue
			}
			c.pixels[row*c.cfg.Width+col] = px
		}
	}
}

// shade turns a hit into a pixel according to the camera mode.
func (c *Camera) shade(hit world.Hit, size float64) color.RGBA {
	sc := geometry.Clamp(1-hit.Distance/size*c.cfg.ColorsFadeWithDistance, 0, 1)
	switch c.cfg.Mode {
	case ModeDepth:
		v := channel(255 * geometry.Clamp(1-hit.Distance/size, 0, 1))
		return color.RGBA{R: v, G: v, B: v, A: 255}
	case ModeGray:
		avg := (float64(hit.Color.R) + float64(hit.Color.G) + float64(hit.Color.B)) / 3
		v := channel(avg * sc)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	default:
		return color.RGBA{
			R: channel(float64(hit.Color.R) * sc),
			G: channel(float64(hit.Color.G) * sc),
			B: channel(float64(hit.Color.B) * sc),
			A: 255,
		}
	}
}

// backdrop paints sky or ground. In depth mode the ground brightens toward
// the bottom of the frame and the sky is black.
func (c *Camera) backdrop(base color.RGBA, isGround bool, dist float64) color.RGBA {
	switch c.cfg.Mode {
	case ModeDepth:
		if !isGround {
			return black
		}
		v := channel(255 * geometry.Clamp(dist, 0, 1))
		return color.RGBA{R: v, G: v, B: v, A: 255}
	case ModeGray:
		return grayFill
	default:
		return base
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(geometry.Clamp(v, 0, 255)))
}

// Snapshot implements world.Device. Values holds the column depths.
func (c *Camera) Snapshot() world.DeviceSnapshot {
	return world.DeviceSnapshot{
		Name:   c.name,
		Kind:   world.KindCamera,
		Mount:  c.mount,
		Values: c.Depths(),
		Pixels: append([]color.RGBA(nil), c.pixels...),
		Width:  c.cfg.Width,
		Height: c.cfg.Height,
	}
}
