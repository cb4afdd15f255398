package world

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// indexPadding keeps every rectangle non-degenerate (rtreego rejects zero
// extents) and makes touching boxes intersect.
const indexPadding = 1e-6

// R-tree branching factors.
const (
	rtreeMinChildren = 4
	rtreeMaxChildren = 16
)

type wallEntry struct {
	wall *Wall
	rect rtreego.Rect
}

func (e *wallEntry) Bounds() rtreego.Rect { return e.rect }

type bodyEntry struct {
	robot *Robot
	rect  rtreego.Rect
}

func (e *bodyEntry) Bounds() rtreego.Rect { return e.rect }

// spatialIndex narrows wall and robot candidates by bounding box. Results are
// always re-tested exactly and re-ordered by insertion sequence, so answers
// are identical to a brute-force scan.
type spatialIndex struct {
	walls  *rtreego.Rtree
	bodies *rtreego.Rtree
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		walls:  rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
		bodies: rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
	}
}

func toRect(b geometry.AABB) rtreego.Rect {
	b = b.Expand(indexPadding)
	rect, err := rtreego.NewRect(rtreego.Point{b.Min.X, b.Min.Y}, []float64{b.Width(), b.Height()})
	if err != nil {
		// only reachable with non-finite input; an empty-looking box far
		// away keeps the tree consistent
		rect, _ = rtreego.NewRect(rtreego.Point{-1e300, -1e300}, []float64{indexPadding, indexPadding})
	}
	return rect
}

func (ix *spatialIndex) insertWall(w *Wall) {
	ix.walls.Insert(&wallEntry{wall: w, rect: toRect(w.Segment.Bounds())})
}

func (ix *spatialIndex) insertBody(r *Robot) {
	e := &bodyEntry{robot: r, rect: toRect(r.Body().Circle.Bounds())}
	r.entry = e
	ix.bodies.Insert(e)
}

func (ix *spatialIndex) removeBody(r *Robot) {
	if r.entry == nil {
		return
	}
	ix.bodies.Delete(r.entry)
	r.entry = nil
}

func (ix *spatialIndex) moveBody(r *Robot) {
	ix.removeBody(r)
	ix.insertBody(r)
}

func (ix *spatialIndex) wallsIn(box geometry.AABB) []*Wall {
	found := ix.walls.SearchIntersect(toRect(box))
	out := make([]*Wall, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*wallEntry).wall)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (ix *spatialIndex) robotsIn(box geometry.AABB) []*Robot {
	found := ix.bodies.SearchIntersect(toRect(box))
	out := make([]*Robot, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*bodyEntry).robot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
