package geometry

import "math"

// Segment is the closed line segment from A to B.
type Segment struct {
	A Vec `json:"a" yaml:"a" toml:"a"`
	B Vec `json:"b" yaml:"b" toml:"b"`
}

// Seg builds a segment from raw coordinates.
func Seg(x1, y1, x2, y2 float64) Segment { return Segment{A: V(x1, y1), B: V(x2, y2)} }

func (s Segment) Vector() Vec      { return s.B.Sub(s.A) }
func (s Segment) Len() float64     { return s.A.Dist(s.B) }
func (s Segment) Degenerate() bool { return s.Vector().LenSq() < Epsilon*Epsilon }
func (s Segment) Midpoint() Vec    { return s.A.Lerp(s.B, 0.5) }

// Bounds returns the axis-aligned box enclosing the segment.
func (s Segment) Bounds() AABB { return BoundsOf(s.A, s.B) }

// Ray is a half-line starting at Origin, pointing along the unit vector Dir,
// limited to Max length.
type Ray struct {
	Origin Vec
	Dir    Vec
	Max    float64
}

// NewRay builds a ray from an origin, an absolute angle and a maximum range.
func NewRay(origin Vec, angle, max float64) Ray {
	return Ray{Origin: origin, Dir: FromAngle(angle), Max: max}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec { return r.Origin.Add(r.Dir.Scale(t)) }

// End returns the point at the ray's maximum range.
func (r Ray) End() Vec { return r.At(r.Max) }

// Bounds returns the box enclosing the ray up to its maximum range.
func (r Ray) Bounds() AABB { return BoundsOf(r.Origin, r.End()) }

// Circle is a disc.
type Circle struct {
	C Vec
	R float64
}

func (c Circle) Bounds() AABB {
	return AABB{Min: V(c.C.X-c.R, c.C.Y-c.R), Max: V(c.C.X+c.R, c.C.Y+c.R)}
}

// Polygon is a closed polygon; the last vertex connects back to the first.
type Polygon struct {
	Points []Vec
}

// Poly builds a polygon from a vertex list.
func Poly(points ...Vec) Polygon { return Polygon{Points: points} }

// Rect returns the axis-aligned rectangle polygon with corners (x, y) and
// (x+w, y+h), counter-clockwise.
func Rect(x, y, w, h float64) Polygon {
	return Poly(V(x, y), V(x+w, y), V(x+w, y+h), V(x, y+h))
}

// Valid reports whether the polygon has at least three vertices.
func (p Polygon) Valid() bool { return len(p.Points) >= 3 }

// Edges returns the polygon outline as segments.
func (p Polygon) Edges() []Segment {
	n := len(p.Points)
	if n < 2 {
		return nil
	}
	edges := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		if n == 2 && i == 1 {
			break
		}
		edges = append(edges, Segment{A: a, B: b})
	}
	return edges
}

// Centroid returns the vertex average.
func (p Polygon) Centroid() Vec {
	if len(p.Points) == 0 {
		return Vec{}
	}
	var c Vec
	for _, pt := range p.Points {
		c = c.Add(pt)
	}
	return c.Scale(1 / float64(len(p.Points)))
}

func (p Polygon) Bounds() AABB { return BoundsOf(p.Points...) }

// Translate returns a copy of p moved by d.
func (p Polygon) Translate(d Vec) Polygon {
	out := make([]Vec, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Add(d)
	}
	return Polygon{Points: out}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec
	Max Vec
}

// BoundsOf returns the smallest box holding every point.
func BoundsOf(points ...Vec) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	b := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

func (b AABB) Width() float64  { return b.Max.X - b.Min.X }
func (b AABB) Height() float64 { return b.Max.Y - b.Min.Y }

// Expand grows the box by m on every side.
func (b AABB) Expand(m float64) AABB {
	return AABB{Min: V(b.Min.X-m, b.Min.Y-m), Max: V(b.Max.X+m, b.Max.Y+m)}
}

// Union returns the box enclosing both b and o.
func (b AABB) Union(o AABB) AABB { return BoundsOf(b.Min, b.Max, o.Min, o.Max) }

// Intersects reports whether the boxes overlap or touch.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X && b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

// Contains reports whether p lies inside the box, borders included.
func (b AABB) Contains(p Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}
