package world

import (
	"image/color"
	"sort"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// HitKind says what a ray struck.
type HitKind uint8

const (
	HitNone HitKind = iota
	HitWall
	HitBoundary
	HitRobot
)

func (k HitKind) String() string {
	switch k {
	case HitWall:
		return "wall"
	case HitBoundary:
		return "boundary"
	case HitRobot:
		return "robot"
	default:
		return "none"
	}
}

// Hit is one ray intersection.
type Hit struct {
	Distance float64
	Point    geometry.Vec
	Kind     HitKind
	Color    color.RGBA
	RobotID  uuid.UUID
}

// CastOption filters what a ray can strike.
type CastOption func(*castOptions)

type castOptions struct {
	ignore     uuid.UUID
	skipWalls  bool
	skipRobots bool
}

// IgnoreRobot makes the ray pass through the given robot, typically the one
// carrying the sensor.
func IgnoreRobot(id uuid.UUID) CastOption {
	return func(o *castOptions) { o.ignore = id }
}

// OnlyWalls makes the ray pass through every robot.
func OnlyWalls() CastOption {
	return func(o *castOptions) { o.skipRobots = true }
}

// OnlyRobots makes the ray pass through every wall, the arena edges included.
func OnlyRobots() CastOption {
	return func(o *castOptions) { o.skipWalls = true }
}

// CastRay returns the nearest hit along r. Equal distances resolve walls
// before robots and earlier insertions first, so the answer does not depend
// on whether the spatial index is enabled.
func (w *World) CastRay(r geometry.Ray, opts ...CastOption) (Hit, bool) {
	hits := w.castRay(r, opts, false)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

// CastRayAll returns every hit along r ordered by distance.
func (w *World) CastRayAll(r geometry.Ray, opts ...CastOption) []Hit {
	return w.castRay(r, opts, true)
}

func (w *World) castRay(r geometry.Ray, opts []CastOption, all bool) []Hit {
	var o castOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !r.Origin.IsFinite() || !r.Dir.IsFinite() || !geometry.Finite(r.Max) || r.Max <= 0 {
		return nil
	}

	region := r.Bounds()
	var hits []Hit
	keep := func(h Hit) {
		switch {
		case all:
			hits = append(hits, h)
		case len(hits) == 0:
			hits = append(hits, h)
		case h.Distance < hits[0].Distance:
			hits[0] = h
		}
	}

	if !o.skipWalls {
		for _, wall := range w.WallsNear(region) {
			t, ok := geometry.RaySegment(r, wall.Segment)
			if !ok {
				continue
			}
			kind := HitWall
			if wall.Boundary {
				kind = HitBoundary
			}
			keep(Hit{Distance: t, Point: r.At(t), Kind: kind, Color: wall.Color})
		}
	}
	if !o.skipRobots {
		for _, rb := range w.RobotsNear(region) {
			if rb.id == o.ignore {
				continue
			}
			t, ok := geometry.RayCircle(r, rb.Body().Circle)
			if !ok {
				continue
			}
			keep(Hit{Distance: t, Point: r.At(t), Kind: HitRobot, Color: rb.color, RobotID: rb.id})
		}
	}

	if all {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	}
	return hits
}
