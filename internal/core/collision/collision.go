// Package collision decides whether a robot may move to a candidate pose.
//
// The policy is deliberately simple: a move that would overlap a wall, the
// arena boundary or another robot is rejected as a whole and the robot is
// marked stalled. There is no sliding and no bounce. Callers resolve robots
// one at a time in a fixed order; each robot is tested against the poses the
// others hold at that moment, so a robot earlier in the order has already
// committed its move when later robots are tested.
package collision

import (
	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
)

// Edge is a wall segment as seen by the resolver.
type Edge struct {
	Segment  geometry.Segment
	Boundary bool
}

// Body is a circular robot body.
type Body struct {
	ID     uuid.UUID
	Circle geometry.Circle
}

// Environment is the read-only view of the world the resolver needs.
// Implementations may return a superset of the relevant obstacles; the
// resolver tests each one exactly.
type Environment interface {
	EdgesNear(box geometry.AABB) []Edge
	InsideSolid(p geometry.Vec) bool
	BodiesNear(box geometry.AABB, exclude uuid.UUID) []Body
}

// BlockerKind names what stopped a move.
type BlockerKind uint8

const (
	BlockerNone BlockerKind = iota
	BlockerWall
	BlockerBoundary
	BlockerRobot
	BlockerSolid
)

func (k BlockerKind) String() string {
	switch k {
	case BlockerNone:
		return "none"
	case BlockerWall:
		return "wall"
	case BlockerBoundary:
		return "boundary"
	case BlockerRobot:
		return "robot"
	case BlockerSolid:
		return "solid"
	default:
		return "unknown"
	}
}

// Blocker describes the obstacle that rejected a move.
type Blocker struct {
	Kind    BlockerKind
	RobotID uuid.UUID
}

// Outcome is the resolved result of one robot's step.
type Outcome struct {
	Pose    kinematics.Pose
	Stalled bool
	Blocker Blocker
}

// Resolver applies the reject-whole-step policy.
type Resolver struct {
	// DisableSweep turns off the swept-path test. With it off a large step
	// can tunnel through a thin wall; it exists for comparison in tests.
	DisableSweep bool
}

// Resolve tests the move from current to candidate for the body with the
// given id and radius. Rotation in place is always accepted.
func (r Resolver) Resolve(env Environment, id uuid.UUID, radius float64, current, candidate kinematics.Pose) Outcome {
	if !candidate.IsFinite() {
		return Outcome{Pose: current, Stalled: true}
	}
	if !current.Moved(candidate) {
		return Outcome{Pose: candidate}
	}

	var (
		blocker Blocker
		blocked bool
	)
	if r.DisableSweep {
		blocker, blocked = Overlaps(env, id, radius, candidate)
	} else {
		blocker, blocked = sweep(env, id, radius, current.Position(), candidate.Position())
	}
	if blocked {
		return Outcome{Pose: current, Stalled: true, Blocker: blocker}
	}
	return Outcome{Pose: candidate}
}

// Overlaps reports whether a body of the given radius at pose would overlap
// anything other than the body identified by id. Touching is not overlap.
func Overlaps(env Environment, id uuid.UUID, radius float64, pose kinematics.Pose) (Blocker, bool) {
	body := geometry.Circle{C: pose.Position(), R: radius}
	box := body.Bounds()

	if env.InsideSolid(body.C) {
		return Blocker{Kind: BlockerSolid}, true
	}
	for _, e := range env.EdgesNear(box) {
		if _, hit := geometry.CircleSegment(body, e.Segment); hit {
			return edgeBlocker(e), true
		}
	}
	for _, other := range env.BodiesNear(box, id) {
		if _, hit := geometry.CircleCircle(body, other.Circle); hit {
			return Blocker{Kind: BlockerRobot, RobotID: other.ID}, true
		}
	}
	return Blocker{}, false
}

// sweep tests the capsule traced by the body moving from a to b.
func sweep(env Environment, id uuid.UUID, radius float64, a, b geometry.Vec) (Blocker, bool) {
	path := geometry.Segment{A: a, B: b}
	box := path.Bounds().Expand(radius)
	limit := radius - geometry.Epsilon

	if env.InsideSolid(b) {
		return Blocker{Kind: BlockerSolid}, true
	}
	for _, e := range env.EdgesNear(box) {
		if e.Segment.Degenerate() {
			continue
		}
		if geometry.SegmentDistance(path, e.Segment) < limit {
			return edgeBlocker(e), true
		}
	}
	for _, other := range env.BodiesNear(box, id) {
		if geometry.DistanceToSegment(other.Circle.C, path) < radius+other.Circle.R-geometry.Epsilon {
			return Blocker{Kind: BlockerRobot, RobotID: other.ID}, true
		}
	}
	return Blocker{}, false
}

func edgeBlocker(e Edge) Blocker {
	if e.Boundary {
		return Blocker{Kind: BlockerBoundary}
	}
	return Blocker{Kind: BlockerWall}
}
