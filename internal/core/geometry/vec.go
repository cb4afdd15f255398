// Package geometry holds the 2D primitives shared by the world, the collision
// resolver and the sensors. Every function is pure: no shared state, no
// errors. Degenerate input (zero-length segments, parallel lines, empty
// polygons) yields "no intersection".
package geometry

import "math"

// Epsilon is the tolerance used for zero tests.
const Epsilon = 1e-9

// Vec is a 2D point or vector.
type Vec struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// V is shorthand for Vec{x, y}.
func V(x, y float64) Vec { return Vec{X: x, Y: y} }

// FromAngle returns the unit vector pointing at angle radians.
func FromAngle(angle float64) Vec { return Vec{X: math.Cos(angle), Y: math.Sin(angle)} }

func (a Vec) Add(b Vec) Vec        { return Vec{a.X + b.X, a.Y + b.Y} }
func (a Vec) Sub(b Vec) Vec        { return Vec{a.X - b.X, a.Y - b.Y} }
func (a Vec) Scale(f float64) Vec  { return Vec{a.X * f, a.Y * f} }
func (a Vec) Dot(b Vec) float64    { return a.X*b.X + a.Y*b.Y }
func (a Vec) Cross(b Vec) float64  { return a.X*b.Y - a.Y*b.X }
func (a Vec) LenSq() float64       { return a.X*a.X + a.Y*a.Y }
func (a Vec) Len() float64         { return math.Hypot(a.X, a.Y) }
func (a Vec) Dist(b Vec) float64   { return math.Hypot(b.X-a.X, b.Y-a.Y) }
func (a Vec) DistSq(b Vec) float64 { return b.Sub(a).LenSq() }
func (a Vec) Neg() Vec             { return Vec{-a.X, -a.Y} }
func (a Vec) Perp() Vec            { return Vec{-a.Y, a.X} }
func (a Vec) Equals(b Vec) bool    { return IsZero(a.X-b.X) && IsZero(a.Y-b.Y) }
func (a Vec) Angle() float64       { return math.Atan2(a.Y, a.X) }

// Lerp interpolates linearly from a (t=0) to b (t=1).
func (a Vec) Lerp(b Vec, t float64) Vec { return a.Add(b.Sub(a).Scale(t)) }

// Normalize returns the unit vector with a's direction, or the zero vector.
func (a Vec) Normalize() Vec {
	l := a.Len()
	if l < Epsilon {
		return Vec{}
	}
	return a.Scale(1 / l)
}

// Rotate rotates a counter-clockwise by angle radians around the origin.
func (a Vec) Rotate(angle float64) Vec {
	s, c := math.Sincos(angle)
	return Vec{a.X*c - a.Y*s, a.X*s + a.Y*c}
}

// IsFinite reports whether both components are finite numbers.
func (a Vec) IsFinite() bool { return Finite(a.X) && Finite(a.Y) }

// IsZero reports whether |f| is below Epsilon.
func IsZero(f float64) bool { return math.Abs(f) < Epsilon }

// Finite reports whether f is neither NaN nor ±Inf.
func Finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// NormalizeAngle maps any finite angle into [-π, π).
func NormalizeAngle(a float64) float64 {
	if !Finite(a) {
		return 0
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	a -= math.Pi
	if a >= math.Pi {
		a = -math.Pi
	}
	return a
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
