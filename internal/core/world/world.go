// Package world holds the arena: its bounds, walls, lights and robots, the
// simulated clock, and the spatial and ray-cast queries the collision
// resolver and the sensors run against it.
//
// A World is not safe for concurrent use. One scheduler drives it; other
// goroutines must work from Snapshot copies.
package world

import (
	"fmt"
	"image/color"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/collision"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
	"github.com/zeusync/robosim/internal/core/observability/log"
)

// Default colors.
var (
	DefaultBackground = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	DefaultWallColor  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	DefaultLightColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	BoundaryColor     = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Wall is one straight wall. Walls that come from a polygon share its Solid
// index; the arena edges have Boundary set.
type Wall struct {
	Segment  geometry.Segment
	Color    color.RGBA
	Boundary bool
	Solid    int

	seq int
}

// Light is a point light source.
type Light struct {
	Position  geometry.Vec `json:"position"`
	Intensity float64      `json:"intensity"`
	Color     color.RGBA   `json:"color"`
}

// World is a bounded arena [0,Width]×[0,Height].
type World struct {
	width, height float64
	background    color.RGBA

	walls  []*Wall
	solids []geometry.Polygon
	lights []Light
	robots []*Robot

	robotSeq     int
	deviceOwners map[Device]*Robot

	index  *spatialIndex
	logger log.Log

	time  float64
	steps uint64
}

// Option configures New.
type Option func(*options)

type options struct {
	background color.RGBA
	walls      []Wall
	polygons   []polygonWall
	lights     []Light
	logger     log.Log
	indexed    bool
}

type polygonWall struct {
	poly  geometry.Polygon
	color color.RGBA
}

func WithBackground(c color.RGBA) Option {
	return func(o *options) { o.background = c }
}

// WithWalls adds walls at construction; zero colors become DefaultWallColor.
func WithWalls(walls ...Wall) Option {
	return func(o *options) { o.walls = append(o.walls, walls...) }
}

// WithPolygonWall adds a closed solid obstacle at construction.
func WithPolygonWall(p geometry.Polygon, c color.RGBA) Option {
	return func(o *options) { o.polygons = append(o.polygons, polygonWall{poly: p, color: c}) }
}

func WithLights(lights ...Light) Option {
	return func(o *options) { o.lights = append(o.lights, lights...) }
}

func WithLogger(l log.Log) Option {
	return func(o *options) { o.logger = l }
}

// WithSpatialIndex switches the R-tree on or off. It is on by default; off
// means every query scans every wall and robot.
func WithSpatialIndex(on bool) Option {
	return func(o *options) { o.indexed = on }
}

// New builds a world of the given extent. The four arena edges become
// boundary walls so robots can never leave.
func New(width, height float64, opts ...Option) (*World, error) {
	if !geometry.Finite(width) || !geometry.Finite(height) || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: world extent %gx%g must be positive", ErrConfiguration, width, height)
	}
	o := options{background: DefaultBackground, indexed: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNop()
	}

	w := &World{
		width:        width,
		height:       height,
		background:   o.background,
		deviceOwners: make(map[Device]*Robot),
		logger:       o.logger,
	}
	if o.indexed {
		w.index = newSpatialIndex()
	}

	corners := []geometry.Vec{{X: 0, Y: 0}, {X: width, Y: 0}, {X: width, Y: height}, {X: 0, Y: height}}
	for i := range corners {
		w.insertWall(&Wall{
			Segment:  geometry.Segment{A: corners[i], B: corners[(i+1)%len(corners)]},
			Color:    BoundaryColor,
			Boundary: true,
			Solid:    -1,
		})
	}
	for _, wall := range o.walls {
		if err := w.AddWall(wall.Segment, wall.Color); err != nil {
			return nil, err
		}
	}
	for _, p := range o.polygons {
		if err := w.AddPolygonWall(p.poly, p.color); err != nil {
			return nil, err
		}
	}
	for _, l := range o.lights {
		if err := w.AddLight(l); err != nil {
			return nil, err
		}
	}

	w.logger.Debug("world created",
		log.Float64("width", width),
		log.Float64("height", height),
		log.Int("walls", len(w.walls)),
		log.Int("lights", len(w.lights)),
		log.Bool("indexed", o.indexed),
	)
	return w, nil
}

func (w *World) Width() float64         { return w.width }
func (w *World) Height() float64        { return w.height }
func (w *World) Background() color.RGBA { return w.background }
func (w *World) Time() float64          { return w.time }
func (w *World) Steps() uint64          { return w.steps }
func (w *World) Logger() log.Log        { return w.logger }

// Bounds returns the arena rectangle.
func (w *World) Bounds() geometry.AABB { return geometry.AABB{Max: geometry.V(w.width, w.height)} }

// Solids returns copies of the polygon obstacles.
func (w *World) Solids() []geometry.Polygon {
	out := make([]geometry.Polygon, len(w.solids))
	for i, s := range w.solids {
		out[i] = Polygon(s)
	}
	return out
}

func (w *World) inBounds(p geometry.Vec) bool {
	return p.IsFinite() && w.Bounds().Expand(geometry.Epsilon).Contains(p)
}

func (w *World) insertWall(wall *Wall) {
	wall.seq = len(w.walls)
	w.walls = append(w.walls, wall)
	if w.index != nil {
		w.index.insertWall(wall)
	}
}

// AddWall adds a straight wall. Both ends must lie inside the arena, the
// wall must have length and it must not cut through a robot.
func (w *World) AddWall(s geometry.Segment, c color.RGBA) error {
	if s.Degenerate() || !w.inBounds(s.A) || !w.inBounds(s.B) {
		return fmt.Errorf("%w: wall %v-%v must be non-empty and inside the arena", ErrConfiguration, s.A, s.B)
	}
	if c == (color.RGBA{}) {
		c = DefaultWallColor
	}
	for _, r := range w.robots {
		if _, hit := geometry.CircleSegment(r.Body().Circle, s); hit {
			return fmt.Errorf("%w: wall %v-%v overlaps %s", ErrConfiguration, s.A, s.B, r)
		}
	}
	w.insertWall(&Wall{Segment: s, Color: c, Solid: -1})
	w.logger.Debug("wall added", log.Any("from", s.A), log.Any("to", s.B))
	return nil
}

// AddPolygonWall adds a closed obstacle: its outline becomes walls and its
// interior is solid.
func (w *World) AddPolygonWall(p geometry.Polygon, c color.RGBA) error {
	if !p.Valid() {
		return fmt.Errorf("%w: polygon wall needs at least 3 points", ErrConfiguration)
	}
	for _, pt := range p.Points {
		if !w.inBounds(pt) {
			return fmt.Errorf("%w: polygon point %v outside the arena", ErrConfiguration, pt)
		}
	}
	for _, r := range w.robots {
		if _, hit := geometry.CirclePolygon(r.Body().Circle, p); hit {
			return fmt.Errorf("%w: polygon wall overlaps %s", ErrConfiguration, r)
		}
	}
	if c == (color.RGBA{}) {
		c = DefaultWallColor
	}
	solid := len(w.solids)
	w.solids = append(w.solids, Polygon(p))
	for _, e := range p.Edges() {
		if e.Degenerate() {
			continue
		}
		w.insertWall(&Wall{Segment: e, Color: c, Solid: solid})
	}
	w.logger.Debug("polygon wall added", log.Int("points", len(p.Points)))
	return nil
}

// Polygon copies a polygon so later edits by the caller do not leak in.
func Polygon(p geometry.Polygon) geometry.Polygon {
	return geometry.Polygon{Points: append([]geometry.Vec(nil), p.Points...)}
}

// AddLight adds a point light inside the arena.
func (w *World) AddLight(l Light) error {
	if !w.inBounds(l.Position) || !geometry.Finite(l.Intensity) || l.Intensity < 0 {
		return fmt.Errorf("%w: light at %v with intensity %g", ErrConfiguration, l.Position, l.Intensity)
	}
	if l.Color == (color.RGBA{}) {
		l.Color = DefaultLightColor
	}
	w.lights = append(w.lights, l)
	w.logger.Debug("light added", log.Any("position", l.Position), log.Float64("intensity", l.Intensity))
	return nil
}

// AddRobot places a new robot. It must fit inside the arena without
// overlapping walls or other robots. An empty name becomes "robot-N".
func (w *World) AddRobot(name string, pose kinematics.Pose, opts ...RobotOption) (*Robot, error) {
	r := &Robot{
		id:     uuid.New(),
		name:   name,
		radius: DefaultRobotRadius,
		color:  DefaultRobotColor,
		pose:   kinematics.NewPose(pose.X, pose.Y, pose.Heading),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.name == "" {
		r.name = fmt.Sprintf("robot-%d", w.robotSeq+1)
	}
	if !geometry.Finite(r.radius) || r.radius <= 0 {
		return nil, fmt.Errorf("%w: robot %q radius %g must be positive", ErrConfiguration, r.name, r.radius)
	}
	if !r.pose.IsFinite() {
		return nil, fmt.Errorf("%w: robot %q pose is not finite", ErrConfiguration, r.name)
	}
	if !geometry.Finite(r.cmd.Forward) || !geometry.Finite(r.cmd.Turn) {
		return nil, fmt.Errorf("%w: robot %q command is not finite", ErrConfiguration, r.name)
	}
	for _, other := range w.robots {
		if other.name == r.name {
			return nil, fmt.Errorf("%w: duplicate robot name %q", ErrConfiguration, r.name)
		}
		if other.id == r.id {
			return nil, fmt.Errorf("%w: duplicate robot id %s", ErrConfiguration, r.id)
		}
	}
	if !w.fits(r.pose.Position(), r.radius) {
		return nil, fmt.Errorf("%w: robot %q does not fit inside the arena at %v", ErrConfiguration, r.name, r.pose.Position())
	}
	if blocker, hit := collision.Overlaps(w, r.id, r.radius, r.pose); hit {
		return nil, fmt.Errorf("%w: robot %q overlaps a %s", ErrConfiguration, r.name, blocker.Kind)
	}

	w.robotSeq++
	r.seq = w.robotSeq
	r.world = w
	w.robots = append(w.robots, r)
	if w.index != nil {
		w.index.insertBody(r)
	}
	w.logger.Debug("robot added", log.String("name", r.name), log.Stringer("id", r.id), log.Any("pose", r.pose))
	return r, nil
}

// RemoveRobot detaches a robot and its devices. Further commands on it fail
// with ErrNotFound.
func (w *World) RemoveRobot(id uuid.UUID) error {
	for i, r := range w.robots {
		if r.id != id {
			continue
		}
		if w.index != nil {
			w.index.removeBody(r)
		}
		for _, d := range r.devices {
			delete(w.deviceOwners, d)
		}
		w.robots = append(w.robots[:i:i], w.robots[i+1:]...)
		r.world = nil
		w.logger.Debug("robot removed", log.String("name", r.name), log.Stringer("id", r.id))
		return nil
	}
	return fmt.Errorf("%w: robot %s", ErrNotFound, id)
}

// Robots returns the live robots in insertion order.
func (w *World) Robots() []*Robot {
	out := make([]*Robot, len(w.robots))
	copy(out, w.robots)
	return out
}

// Robot looks a robot up by id.
func (w *World) Robot(id uuid.UUID) (*Robot, error) {
	for _, r := range w.robots {
		if r.id == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: robot %s", ErrNotFound, id)
}

// RobotByName looks a robot up by name.
func (w *World) RobotByName(name string) (*Robot, error) {
	for _, r := range w.robots {
		if r.name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: robot %q", ErrNotFound, name)
}

// Walls returns every wall, boundary edges first.
func (w *World) Walls() []Wall {
	out := make([]Wall, len(w.walls))
	for i, wall := range w.walls {
		out[i] = *wall
	}
	return out
}

// Lights returns the light sources in insertion order.
func (w *World) Lights() []Light {
	return append([]Light(nil), w.lights...)
}

// WallsNear returns the walls whose bounding box meets region, in insertion
// order.
func (w *World) WallsNear(region geometry.AABB) []*Wall {
	if w.index != nil {
		return w.index.wallsIn(region)
	}
	out := make([]*Wall, 0, len(w.walls))
	for _, wall := range w.walls {
		if wall.Segment.Bounds().Expand(indexPadding).Intersects(region.Expand(indexPadding)) {
			out = append(out, wall)
		}
	}
	return out
}

// RobotsNear returns the robots whose body box meets region, in insertion
// order.
func (w *World) RobotsNear(region geometry.AABB) []*Robot {
	if w.index != nil {
		return w.index.robotsIn(region)
	}
	out := make([]*Robot, 0, len(w.robots))
	for _, r := range w.robots {
		if r.Body().Circle.Bounds().Expand(indexPadding).Intersects(region.Expand(indexPadding)) {
			out = append(out, r)
		}
	}
	return out
}

// EdgesNear implements collision.Environment.
func (w *World) EdgesNear(box geometry.AABB) []collision.Edge {
	walls := w.WallsNear(box)
	out := make([]collision.Edge, len(walls))
	for i, wall := range walls {
		out[i] = collision.Edge{Segment: wall.Segment, Boundary: wall.Boundary}
	}
	return out
}

// InsideSolid implements collision.Environment.
func (w *World) InsideSolid(p geometry.Vec) bool {
	for _, s := range w.solids {
		if s.Bounds().Contains(p) && geometry.PointInPolygon(p, s) {
			return true
		}
	}
	return false
}

// BodiesNear implements collision.Environment.
func (w *World) BodiesNear(box geometry.AABB, exclude uuid.UUID) []collision.Body {
	robots := w.RobotsNear(box)
	out := make([]collision.Body, 0, len(robots))
	for _, r := range robots {
		if r.id != exclude {
			out = append(out, r.Body())
		}
	}
	return out
}

func (w *World) fits(c geometry.Vec, radius float64) bool {
	return c.IsFinite() &&
		c.X-radius >= -geometry.Epsilon && c.X+radius <= w.width+geometry.Epsilon &&
		c.Y-radius >= -geometry.Epsilon && c.Y+radius <= w.height+geometry.Epsilon
}

// Commit stores a resolved pose and stall flag for a robot. It re-validates
// moved poses and refuses any that overlap an obstacle or leave the arena,
// returning ErrCollisionPolicyViolation.
func (w *World) Commit(id uuid.UUID, pose kinematics.Pose, stalled bool) error {
	r, err := w.Robot(id)
	if err != nil {
		return err
	}
	pose.Heading = geometry.NormalizeAngle(pose.Heading)
	if r.pose.Moved(pose) {
		if !w.fits(pose.Position(), r.radius) {
			return fmt.Errorf("%w: %s would leave the arena at %v", ErrCollisionPolicyViolation, r, pose.Position())
		}
		if blocker, hit := collision.Overlaps(w, r.id, r.radius, pose); hit {
			return fmt.Errorf("%w: %s would overlap a %s at %v", ErrCollisionPolicyViolation, r, blocker.Kind, pose.Position())
		}
	}
	moved := r.pose.Moved(pose)
	r.pose = pose
	r.stalled = stalled
	if moved && w.index != nil {
		w.index.moveBody(r)
	}
	return nil
}

// Advance moves the simulated clock forward by one step of length dt.
func (w *World) Advance(dt float64) {
	w.time += dt
	w.steps++
}

func deviceFields(r *Robot, d Device) []log.Field {
	return []log.Field{
		log.String("robot", r.name),
		log.String("device", d.Name()),
		log.Stringer("kind", d.Kind()),
	}
}
