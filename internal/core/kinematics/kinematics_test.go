package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zeusync/robosim/internal/core/geometry"
)

func TestIntegrateStraightLine(t *testing.T) {
	const dt = 0.1
	for _, h := range []float64{0, math.Pi / 6, math.Pi / 2, -2.5, 3} {
		start := NewPose(1, 2, h)
		p := start
		for i := 0; i < 50; i++ {
			var ok bool
			p, ok = Integrate(p, Command{Forward: 0.8}, dt)
			assert.True(t, ok)
		}
		assert.InDelta(t, start.X+0.8*5*math.Cos(h), p.X, 1e-9)
		assert.InDelta(t, start.Y+0.8*5*math.Sin(h), p.Y, 1e-9)
		assert.Equal(t, start.Heading, p.Heading)
	}
}

func TestIntegrateTurnWraps(t *testing.T) {
	p := NewPose(0, 0, 3)
	next, ok := Integrate(p, Command{Turn: 1}, 0.5)
	assert.True(t, ok)
	assert.InDelta(t, 3.5-2*math.Pi, next.Heading, 1e-12)
	assert.False(t, p.Moved(next))
}

func TestIntegrateUsesStartHeading(t *testing.T) {
	next, _ := Integrate(NewPose(0, 0, 0), Command{Forward: 1, Turn: 2 * math.Pi}, 0.5)
	assert.InDelta(t, 0.5, next.X, 1e-12)
	assert.InDelta(t, 0, next.Y, 1e-12)
	assert.InDelta(t, -math.Pi, next.Heading, 1e-12)
}

func TestIntegrateNonFiniteIsZeroMotion(t *testing.T) {
	p := NewPose(1, 1, 0)
	for _, c := range []Command{
		{Forward: math.NaN()},
		{Turn: math.Inf(1)},
		{Forward: math.MaxFloat64},
	} {
		next, ok := Integrate(p, c, 10)
		assert.False(t, ok, "%+v", c)
		assert.Equal(t, p, next)
	}

	next, ok := Integrate(p, Command{Forward: 1}, math.NaN())
	assert.False(t, ok)
	assert.Equal(t, p, next)
}

func TestToWorld(t *testing.T) {
	p := NewPose(2, 3, math.Pi/2)
	w := p.ToWorld(geometry.V(1, 0))
	assert.InDelta(t, 2, w.X, 1e-12)
	assert.InDelta(t, 4, w.Y, 1e-12)
}
