package sensors

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
	"github.com/zeusync/robosim/internal/core/world"
)

var front = world.Mount{Offset: geometry.V(0.25, 0)}

func newWorld(t *testing.T, opts ...world.Option) *world.World {
	t.Helper()
	w, err := world.New(10, 10, opts...)
	require.NoError(t, err)
	return w
}

func addRobot(t *testing.T, w *world.World, name string, x, y, heading float64, opts ...world.RobotOption) *world.Robot {
	t.Helper()
	r, err := w.AddRobot(name, kinematics.NewPose(x, y, heading), opts...)
	require.NoError(t, err)
	return r
}

func TestRangeSensorMonotonic(t *testing.T) {
	prev := -1.0
	for x := 3.0; x <= 9; x += 0.5 {
		w := newWorld(t, world.WithWalls(world.Wall{Segment: geometry.Seg(x, 0, x, 10)}))
		r := addRobot(t, w, "r", 1, 5, 0)
		s, err := NewRangeSensor("front", front, DefaultRangeConfig())
		require.NoError(t, err)
		require.NoError(t, r.AddDevice(s))

		r.UpdateDevices()
		assert.InDelta(t, x-1.25, s.Distance(), 1e-9)
		assert.GreaterOrEqual(t, s.Distance(), prev)
		prev = s.Distance()
	}
}

func TestRangeSensorSeesWallEndOn(t *testing.T) {
	w := newWorld(t, world.WithWalls(world.Wall{Segment: geometry.Seg(5, 5, 8, 5)}))
	r := addRobot(t, w, "r", 1, 5, 0)
	s, err := NewRangeSensor("front", front, DefaultRangeConfig())
	require.NoError(t, err)
	require.NoError(t, r.AddDevice(s))

	r.UpdateDevices()
	assert.InDelta(t, 3.75, s.Distance(), 1e-9, "wall lying along the beam")
}

func TestRangeSensorNothingInRange(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 1, 5, 0)
	s, err := NewRangeSensor("front", front, RangeConfig{MaxRange: 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Distance(), "max range before the first update")

	s.Update(w, r)
	assert.Equal(t, 2.0, s.Distance())
	assert.Equal(t, 1.0, s.Reading())
	assert.Equal(t, []float64{2, 1}, s.Snapshot().Values)
}

func TestRangeSensorSeesOtherRobotsOnly(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 1, 5, 0)
	addRobot(t, w, "other", 4, 5, 0, world.WithRadius(0.5))

	s, err := NewRangeSensor("center", world.Mount{}, DefaultRangeConfig())
	require.NoError(t, err)
	s.Update(w, r)
	assert.InDelta(t, 2.5, s.Distance(), 1e-9, "own body is ignored")
	assert.InDelta(t, 2.5/20, s.Reading(), 1e-12)
}

func TestRangeSensorMountAngle(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 2, 5, 0)
	left, err := NewRangeSensor("left", world.Mount{Angle: math.Pi / 2}, DefaultRangeConfig())
	require.NoError(t, err)
	back, err := NewRangeSensor("back", world.Mount{Angle: math.Pi}, DefaultRangeConfig())
	require.NoError(t, err)

	left.Update(w, r)
	back.Update(w, r)
	assert.InDelta(t, 5, left.Distance(), 1e-9)
	assert.InDelta(t, 2, back.Distance(), 1e-9)
}

func TestRangeSensorSonarCone(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 1, 5, 0)
	addRobot(t, w, "side", 4, 5.8, 0, world.WithRadius(0.3))

	laser, err := NewRangeSensor("laser", front, DefaultRangeConfig())
	require.NoError(t, err)
	sonar, err := NewRangeSensor("sonar", front, RangeConfig{MaxRange: 20, Width: 0.6})
	require.NoError(t, err)

	laser.Update(w, r)
	sonar.Update(w, r)
	assert.InDelta(t, 8.75, laser.Distance(), 1e-9)
	assert.Less(t, sonar.Distance(), 4.0)
}

func TestLightSensorOcclusion(t *testing.T) {
	light := world.Light{Position: geometry.V(8, 5), Intensity: 1}

	open := newWorld(t, world.WithLights(light))
	r := addRobot(t, open, "r", 2, 5, 0)
	s, err := NewLightSensor("eye", world.Mount{}, DefaultLightConfig())
	require.NoError(t, err)
	s.Update(open, r)
	assert.InDelta(t, 1.0/36, s.Reading(), 1e-12)

	walled := newWorld(t, world.WithLights(light), world.WithWalls(world.Wall{Segment: geometry.Seg(5, 0, 5, 10)}))
	r = addRobot(t, walled, "r", 2, 5, 0)
	s.Update(walled, r)
	assert.Zero(t, s.Reading())
}

func TestLightSensorRobotsDoNotOcclude(t *testing.T) {
	w := newWorld(t, world.WithLights(world.Light{Position: geometry.V(8, 5), Intensity: 1}))
	r := addRobot(t, w, "r", 2, 5, 0)
	addRobot(t, w, "blocker", 5, 5, 0, world.WithRadius(1))

	s, err := NewLightSensor("eye", world.Mount{}, DefaultLightConfig())
	require.NoError(t, err)
	s.Update(w, r)
	assert.InDelta(t, 1.0/36, s.Reading(), 1e-12)
}

func TestLightSensorInverseSquareOrdering(t *testing.T) {
	read := func(lightX float64) float64 {
		w := newWorld(t, world.WithLights(world.Light{Position: geometry.V(lightX, 5), Intensity: 1}))
		r := addRobot(t, w, "r", 2, 5, 0)
		s, err := NewLightSensor("eye", world.Mount{}, DefaultLightConfig())
		require.NoError(t, err)
		s.Update(w, r)
		return s.Reading()
	}

	near, far := read(4), read(8)
	assert.Greater(t, near, far)
	assert.InDelta(t, 9, near/far, 1e-9, "three times the distance, a ninth of the light")
}

func TestLightSensorChannelAndClamp(t *testing.T) {
	blue := color.RGBA{B: 255, A: 255}
	w := newWorld(t, world.WithLights(
		world.Light{Position: geometry.V(4, 5), Intensity: 4, Color: blue},
		world.Light{Position: geometry.V(2.05, 5), Intensity: 1000},
	))
	r := addRobot(t, w, "r", 2, 5, 0)

	red, err := NewLightSensor("red", world.Mount{}, LightConfig{MaxReading: 1e9, MinDistance: 1, Channel: ChannelRed})
	require.NoError(t, err)
	red.Update(w, r)
	assert.InDelta(t, 1000, red.Reading(), 1e-9, "blue light is invisible on red; close light floored at min distance")

	clamped, err := NewLightSensor("all", world.Mount{}, LightConfig{MaxReading: 5, MinDistance: 0.1})
	require.NoError(t, err)
	clamped.Update(w, r)
	assert.Equal(t, 5.0, clamped.Reading())
}

func TestCameraSingleRow(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 5, 5, 0)

	cfg := DefaultCameraConfig()
	cfg.Width, cfg.Height = 3, 1
	cfg.ColorsFadeWithDistance = 0
	cam, err := NewCamera("cam", world.Mount{}, cfg)
	require.NoError(t, err)
	cam.Update(w, r)

	for x := 0; x < 3; x++ {
		assert.Equal(t, world.BoundaryColor, cam.At(x, 0))
	}
	assert.InDelta(t, 5, cam.Depths()[1], 1e-9)

	cfg.MaxRange = 1
	blind, err := NewCamera("blind", world.Mount{}, cfg)
	require.NoError(t, err)
	blind.Update(w, r)
	assert.Equal(t, DefaultSky, blind.At(1, 0), "no hit shows the sky")
	assert.Equal(t, []float64{1, 1, 1}, blind.Depths())
}

func TestCameraColumnsLookLeftToRight(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 5, 5, 0)
	addRobot(t, w, "left", 7, 5.8, 0, world.WithRadius(0.5), world.WithColor(color.RGBA{G: 255, A: 255}))

	cfg := DefaultCameraConfig()
	cfg.Width, cfg.Height = 2, 1
	cfg.FOV = math.Pi / 2
	cam, err := NewCamera("cam", world.Mount{}, cfg)
	require.NoError(t, err)
	cam.Update(w, r)

	assert.Less(t, cam.Depths()[0], cam.Depths()[1], "the robot is on the left")
	assert.NotZero(t, cam.At(0, 0).G)
}

func TestCameraBands(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 5, 5, 0)

	cfg := DefaultCameraConfig()
	cfg.Width, cfg.Height = 1, 10
	cam, err := NewCamera("cam", world.Mount{}, cfg)
	require.NoError(t, err)
	cam.Update(w, r)

	wall := color.RGBA{R: 96, G: 96, B: 96, A: 255}
	for y := 0; y < 10; y++ {
		switch {
		case y <= 2:
			assert.Equal(t, DefaultSky, cam.At(0, y), "row %d", y)
		case y <= 7:
			assert.Equal(t, wall, cam.At(0, y), "row %d", y)
		default:
			assert.Equal(t, world.DefaultBackground, cam.At(0, y), "row %d", y)
		}
	}

	img := cam.Image()
	assert.Equal(t, 1, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
	assert.Equal(t, wall, img.RGBAAt(0, 5))
}

func TestCameraDrawsRobotsOverWalls(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 5, 5, 0)
	addRobot(t, w, "ahead", 7, 5, 0, world.WithRadius(0.5))

	cfg := DefaultCameraConfig()
	cfg.Width, cfg.Height = 1, 10
	cam, err := NewCamera("cam", world.Mount{}, cfg)
	require.NoError(t, err)
	cam.Update(w, r)

	assert.Equal(t, color.RGBA{R: 236, A: 255}, cam.At(0, 9))
	assert.Equal(t, color.RGBA{R: 96, G: 96, B: 96, A: 255}, cam.At(0, 7), "wall above the robot")
	assert.InDelta(t, 1.5, cam.Depths()[0], 1e-9)
}

func TestCameraDepthMode(t *testing.T) {
	w := newWorld(t)
	r := addRobot(t, w, "r", 5, 5, 0)

	cfg := DefaultCameraConfig()
	cfg.Width, cfg.Height = 1, 10
	cfg.Mode = ModeDepth
	cam, err := NewCamera("cam", world.Mount{}, cfg)
	require.NoError(t, err)
	cam.Update(w, r)

	assert.Equal(t, color.RGBA{A: 255}, cam.At(0, 0))
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, cam.At(0, 5))
}

func TestNewFromSpec(t *testing.T) {
	d, err := New(Spec{Kind: "range", Name: "ir", MaxRange: ptr(5.0), Cone: 0.2})
	require.NoError(t, err)
	rs, ok := d.(*RangeSensor)
	require.True(t, ok)
	assert.Equal(t, RangeConfig{MaxRange: 5, Width: 0.2}, rs.Config())

	d, err = New(Spec{Kind: "Camera", Name: "cam", Columns: ptr(16), Rows: ptr(4), Mode: "gray", SkyColor: "#102030"})
	require.NoError(t, err)
	cam := d.(*Camera)
	assert.Equal(t, 16, cam.Config().Width)
	assert.Equal(t, ModeGray, cam.Config().Mode)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}, cam.Config().Sky)

	d, err = New(Spec{Kind: "light", Name: "eye", Channel: "Red"})
	require.NoError(t, err)
	assert.Equal(t, world.KindLight, d.Kind())

	bad := []Spec{
		{Kind: "lidar", Name: "x"},
		{Kind: "range", Name: ""},
		{Kind: "range", Name: "x", MaxRange: ptr(-1.0)},
		{Kind: "range", Name: "x", MaxRange: ptr(0.0)},
		{Kind: "range", Name: "x", Cone: 7},
		{Kind: "range", Name: "x", Angle: math.NaN()},
		{Kind: "light", Name: "x", Channel: "purple"},
		{Kind: "light", Name: "x", MaxReading: ptr(-2.0)},
		{Kind: "light", Name: "x", MinDistance: ptr(0.0)},
		{Kind: "camera", Name: "x", Rows: ptr(-1)},
		{Kind: "camera", Name: "x", Columns: ptr(0)},
		{Kind: "camera", Name: "x", MaxRange: ptr(0.0)},
		{Kind: "camera", Name: "x", FOV: ptr(7.0)},
		{Kind: "camera", Name: "x", Mode: "sepia"},
		{Kind: "camera", Name: "x", ColorFade: ptr(2.0)},
		{Kind: "camera", Name: "x", SkyColor: "#zz"},
	}
	for _, spec := range bad {
		_, err := New(spec)
		assert.ErrorIs(t, err, world.ErrConfiguration, "%+v", spec)
	}
}

func TestSpecZeroIsNotDefault(t *testing.T) {
	d, err := New(Spec{Kind: "camera", Name: "cam", ColorFade: ptr(0.0), SizeFade: ptr(0.0)})
	require.NoError(t, err)
	cfg := d.(*Camera).Config()
	assert.Zero(t, cfg.ColorsFadeWithDistance)
	assert.Zero(t, cfg.SizeFadeWithDistance)
	assert.Equal(t, DefaultCameraConfig().Width, cfg.Width)

	_, err = New(Spec{Kind: "camera", Name: "cam", Rows: ptr(0)})
	require.ErrorIs(t, err, world.ErrConfiguration)
	assert.Contains(t, err.Error(), "resolution")
}

func ptr[T any](v T) *T { return &v }

func TestParseColor(t *testing.T) {
	c, err := ParseColor("navy")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 128, A: 255}, c)

	c, err = ParseColor("#ff000080")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 128}, c)

	_, err = ParseColor("#12345")
	assert.ErrorIs(t, err, world.ErrConfiguration)
}
