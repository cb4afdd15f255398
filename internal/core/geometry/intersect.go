package geometry

import "math"

// Contact describes an overlap between two shapes. Normal is the unit
// direction in which the first shape must move to separate, Depth the
// distance to move. Normal*Depth is the minimum translation vector.
type Contact struct {
	Normal Vec
	Depth  float64
}

// MTV returns the minimum translation vector.
func (c Contact) MTV() Vec { return c.Normal.Scale(c.Depth) }

// SegmentIntersection returns the point where a and b cross. Parallel,
// collinear and zero-length segments never intersect.
func SegmentIntersection(a, b Segment) (Vec, bool) {
	if a.Degenerate() || b.Degenerate() {
		return Vec{}, false
	}
	r := a.Vector()
	s := b.Vector()
	rxs := r.Cross(s)
	if IsZero(rxs) {
		return Vec{}, false
	}
	qp := b.A.Sub(a.A)
	t := qp.Cross(s) / rxs
	u := qp.Cross(r) / rxs
	if !Finite(t) || !Finite(u) || t < 0 || t > 1 || u < 0 || u > 1 {
		return Vec{}, false
	}
	return a.A.Add(r.Scale(t)), true
}

// SegmentsIntersect is the boolean form of SegmentIntersection.
func SegmentsIntersect(a, b Segment) bool {
	_, ok := SegmentIntersection(a, b)
	return ok
}

// RaySegment returns the distance along r to segment s.
func RaySegment(r Ray, s Segment) (float64, bool) {
	if s.Degenerate() || !validRay(r) {
		return 0, false
	}
	sv := s.Vector()
	rxs := r.Dir.Cross(sv)
	qp := s.A.Sub(r.Origin)
	if IsZero(rxs) {
		if !IsZero(qp.Cross(r.Dir.Normalize())) {
			return 0, false
		}
		return rayCollinear(r, s)
	}
	t := qp.Cross(sv) / rxs
	u := qp.Cross(r.Dir) / rxs
	if !Finite(t) || !Finite(u) || t < 0 || t > r.Max || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

// rayCollinear handles a segment lying on the ray's own line: the hit is
// the nearest part of the segment ahead of the origin, 0 if the origin is
// on it.
func rayCollinear(r Ray, s Segment) (float64, bool) {
	l := r.Dir.LenSq()
	ta := s.A.Sub(r.Origin).Dot(r.Dir) / l
	tb := s.B.Sub(r.Origin).Dot(r.Dir) / l
	lo, hi := math.Min(ta, tb), math.Max(ta, tb)
	if hi < 0 {
		return 0, false
	}
	t := math.Max(lo, 0)
	if t > r.Max {
		return 0, false
	}
	return t, true
}

// RayCircle returns the distance along r to the boundary of c. A ray
// starting inside the circle hits at distance 0.
func RayCircle(r Ray, c Circle) (float64, bool) {
	if c.R <= 0 || !validRay(r) {
		return 0, false
	}
	m := r.Origin.Sub(c.C)
	b := m.Dot(r.Dir)
	cc := m.LenSq() - c.R*c.R
	if cc <= 0 {
		return 0, true
	}
	if b > 0 {
		return 0, false
	}
	disc := b*b - cc
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if !Finite(t) || t < 0 || t > r.Max {
		return 0, false
	}
	return t, true
}

// RayPolygon returns the distance along r to the outline of p. A ray
// starting inside the polygon hits at distance 0.
func RayPolygon(r Ray, p Polygon) (float64, bool) {
	if !p.Valid() || !validRay(r) {
		return 0, false
	}
	if PointInPolygon(r.Origin, p) {
		return 0, true
	}
	best, hit := math.Inf(1), false
	for _, e := range p.Edges() {
		if t, ok := RaySegment(r, e); ok && t < best {
			best, hit = t, true
		}
	}
	return best, hit
}

func validRay(r Ray) bool {
	return r.Origin.IsFinite() && r.Dir.IsFinite() && Finite(r.Max) && r.Max > 0 && !IsZero(r.Dir.LenSq())
}

// ClosestPointOnSegment returns the point of s nearest to p.
func ClosestPointOnSegment(p Vec, s Segment) Vec {
	v := s.Vector()
	l2 := v.LenSq()
	if l2 < Epsilon*Epsilon {
		return s.A
	}
	t := Clamp(p.Sub(s.A).Dot(v)/l2, 0, 1)
	return s.A.Add(v.Scale(t))
}

// DistanceToSegment returns the distance from p to s.
func DistanceToSegment(p Vec, s Segment) float64 {
	return p.Dist(ClosestPointOnSegment(p, s))
}

// SegmentDistance returns the shortest distance between two segments, 0 when
// they cross. Zero-length segments behave as points.
func SegmentDistance(a, b Segment) float64 {
	if SegmentsIntersect(a, b) {
		return 0
	}
	return math.Min(
		math.Min(DistanceToSegment(a.A, b), DistanceToSegment(a.B, b)),
		math.Min(DistanceToSegment(b.A, a), DistanceToSegment(b.B, a)),
	)
}

// PointInPolygon reports whether p lies strictly inside the polygon, using
// the even-odd rule.
func PointInPolygon(p Vec, poly Polygon) bool {
	if !poly.Valid() {
		return false
	}
	inside := false
	pts := poly.Points
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// CircleCircle tests two discs. Touching discs do not overlap.
func CircleCircle(a, b Circle) (Contact, bool) {
	d := b.C.Sub(a.C)
	dist := d.Len()
	depth := a.R + b.R - dist
	if depth <= Epsilon || !Finite(depth) {
		return Contact{}, false
	}
	n := V(-1, 0)
	if dist > Epsilon {
		n = d.Scale(-1 / dist)
	}
	return Contact{Normal: n, Depth: depth}, true
}

// CircleSegment tests a disc against a segment. Zero-length segments never
// overlap.
func CircleSegment(c Circle, s Segment) (Contact, bool) {
	if s.Degenerate() {
		return Contact{}, false
	}
	q := ClosestPointOnSegment(c.C, s)
	d := c.C.Sub(q)
	dist := d.Len()
	depth := c.R - dist
	if depth <= Epsilon || !Finite(depth) {
		return Contact{}, false
	}
	n := s.Vector().Perp().Normalize()
	if dist > Epsilon {
		n = d.Scale(1 / dist)
	}
	return Contact{Normal: n, Depth: depth}, true
}

// CirclePolygon tests a disc against a closed polygon, including the case
// where the disc lies entirely inside it.
func CirclePolygon(c Circle, p Polygon) (Contact, bool) {
	if !p.Valid() {
		return Contact{}, false
	}
	if PointInPolygon(c.C, p) {
		best := math.Inf(1)
		var q Vec
		for _, e := range p.Edges() {
			cp := ClosestPointOnSegment(c.C, e)
			if d := c.C.Dist(cp); d < best {
				best, q = d, cp
			}
		}
		n := q.Sub(c.C).Normalize()
		if n == (Vec{}) {
			n = V(-1, 0)
		}
		return Contact{Normal: n, Depth: best + c.R}, true
	}
	var deepest Contact
	hit := false
	for _, e := range p.Edges() {
		if ct, ok := CircleSegment(c, e); ok && ct.Depth > deepest.Depth {
			deepest, hit = ct, true
		}
	}
	return deepest, hit
}

// PolygonPolygon runs the separating-axis test on two convex polygons.
func PolygonPolygon(a, b Polygon) (Contact, bool) {
	if !a.Valid() || !b.Valid() {
		return Contact{}, false
	}
	best := Contact{Depth: math.Inf(1)}
	for _, poly := range [2]Polygon{a, b} {
		for _, e := range poly.Edges() {
			axis := e.Vector().Perp().Normalize()
			if axis == (Vec{}) {
				continue
			}
			minA, maxA := project(a, axis)
			minB, maxB := project(b, axis)
			overlap := math.Min(maxA, maxB) - math.Max(minA, minB)
			if overlap <= Epsilon {
				return Contact{}, false
			}
			if overlap < best.Depth {
				best = Contact{Normal: axis, Depth: overlap}
			}
		}
	}
	if !Finite(best.Depth) {
		return Contact{}, false
	}
	if a.Centroid().Sub(b.Centroid()).Dot(best.Normal) < 0 {
		best.Normal = best.Normal.Neg()
	}
	return best, true
}

func project(p Polygon, axis Vec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, pt := range p.Points {
		d := pt.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}
