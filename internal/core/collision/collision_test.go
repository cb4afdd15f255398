package collision

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
)

// bruteEnv hands every obstacle to the resolver.
type bruteEnv struct {
	edges  []Edge
	solids []geometry.Polygon
	bodies []Body
}

func (e bruteEnv) EdgesNear(geometry.AABB) []Edge { return e.edges }

func (e bruteEnv) InsideSolid(p geometry.Vec) bool {
	for _, s := range e.solids {
		if geometry.PointInPolygon(p, s) {
			return true
		}
	}
	return false
}

func (e bruteEnv) BodiesNear(_ geometry.AABB, exclude uuid.UUID) []Body {
	out := make([]Body, 0, len(e.bodies))
	for _, b := range e.bodies {
		if b.ID != exclude {
			out = append(out, b)
		}
	}
	return out
}

func TestResolveFreeMove(t *testing.T) {
	env := bruteEnv{edges: []Edge{{Segment: geometry.Seg(5, 0, 5, 10)}}}
	cur := kinematics.NewPose(2, 5, 0)
	cand := kinematics.NewPose(2.1, 5, 0)

	out := Resolver{}.Resolve(env, uuid.New(), 0.5, cur, cand)
	assert.False(t, out.Stalled)
	assert.Equal(t, cand, out.Pose)
	assert.Equal(t, BlockerNone, out.Blocker.Kind)
}

func TestResolveWallRejectsWholeStep(t *testing.T) {
	env := bruteEnv{edges: []Edge{{Segment: geometry.Seg(5, 0, 5, 10)}}}
	cur := kinematics.NewPose(4.4, 5, 0)
	cand := kinematics.NewPose(4.6, 5, 0)

	out := Resolver{}.Resolve(env, uuid.New(), 0.5, cur, cand)
	assert.True(t, out.Stalled)
	assert.Equal(t, cur, out.Pose, "no partial sliding")
	assert.Equal(t, BlockerWall, out.Blocker.Kind)
}

func TestResolveBoundaryKind(t *testing.T) {
	env := bruteEnv{edges: []Edge{{Segment: geometry.Seg(0, 0, 0, 10), Boundary: true}}}
	out := Resolver{}.Resolve(env, uuid.New(), 0.5, kinematics.NewPose(0.6, 5, math.Pi), kinematics.NewPose(0.4, 5, math.Pi))
	assert.True(t, out.Stalled)
	assert.Equal(t, BlockerBoundary, out.Blocker.Kind)
	assert.Equal(t, "boundary", out.Blocker.Kind.String())
}

func TestResolveRotationInPlaceNeverCollides(t *testing.T) {
	env := bruteEnv{edges: []Edge{{Segment: geometry.Seg(5, 0, 5, 10)}}}
	cur := kinematics.NewPose(4.5, 5, 0)
	cand := kinematics.NewPose(4.5, 5, 1)

	out := Resolver{}.Resolve(env, uuid.New(), 0.5, cur, cand)
	assert.False(t, out.Stalled)
	assert.Equal(t, cand, out.Pose)
}

func TestResolveMovingAwayFromContact(t *testing.T) {
	env := bruteEnv{edges: []Edge{{Segment: geometry.Seg(5, 0, 5, 10)}}}
	cur := kinematics.NewPose(4.5, 5, math.Pi)
	cand := kinematics.NewPose(4.4, 5, math.Pi)

	out := Resolver{}.Resolve(env, uuid.New(), 0.5, cur, cand)
	assert.False(t, out.Stalled, "touching is not overlap")
}

func TestResolveSweepPreventsTunnelling(t *testing.T) {
	env := bruteEnv{edges: []Edge{{Segment: geometry.Seg(5, 0, 5, 10)}}}
	cur := kinematics.NewPose(2, 5, 0)
	cand := kinematics.NewPose(8, 5, 0)

	assert.True(t, Resolver{}.Resolve(env, uuid.New(), 0.5, cur, cand).Stalled)
	assert.False(t, Resolver{DisableSweep: true}.Resolve(env, uuid.New(), 0.5, cur, cand).Stalled)
}

func TestResolveRobotBlocksAndSelfIsIgnored(t *testing.T) {
	self := uuid.New()
	other := uuid.New()
	env := bruteEnv{bodies: []Body{
		{ID: self, Circle: geometry.Circle{C: geometry.V(2, 5), R: 0.5}},
		{ID: other, Circle: geometry.Circle{C: geometry.V(3.05, 5), R: 0.5}},
	}}

	out := Resolver{}.Resolve(env, self, 0.5, kinematics.NewPose(2, 5, 0), kinematics.NewPose(2.1, 5, 0))
	assert.True(t, out.Stalled)
	assert.Equal(t, BlockerRobot, out.Blocker.Kind)
	assert.Equal(t, other, out.Blocker.RobotID)

	out = Resolver{}.Resolve(env, self, 0.5, kinematics.NewPose(2, 5, 0), kinematics.NewPose(1.9, 5, 0))
	assert.False(t, out.Stalled)
}

func TestResolveSolidPolygon(t *testing.T) {
	env := bruteEnv{solids: []geometry.Polygon{geometry.Rect(4, 4, 2, 2)}}
	_, hit := Overlaps(env, uuid.New(), 0.1, kinematics.NewPose(5, 5, 0))
	assert.True(t, hit)
}

func TestResolveNonFiniteCandidate(t *testing.T) {
	cur := kinematics.NewPose(1, 1, 0)
	out := Resolver{}.Resolve(bruteEnv{}, uuid.New(), 0.5, cur, kinematics.Pose{X: math.NaN()})
	assert.True(t, out.Stalled)
	assert.Equal(t, cur, out.Pose)
}
