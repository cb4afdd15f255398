package main

import (
	"errors"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/sim"
	"github.com/zeusync/robosim/internal/core/world"
)

// wanderer drives every robot forward. A robot that stalls backs off with
// a turn for a fixed number of steps and then drives forward again.
type wanderer struct {
	speed   float64
	turn    float64
	backoff int

	pending map[uuid.UUID]int
}

func newWanderer(speed, turn float64, backoff int) *wanderer {
	return &wanderer{speed: speed, turn: turn, backoff: backoff, pending: make(map[uuid.UUID]int)}
}

func (c *wanderer) Control() sim.ControlFunc {
	return func(w *world.World) error {
		for _, r := range w.Robots() {
			var err error
			switch left := c.pending[r.ID()]; {
			case r.Stalled():
				c.pending[r.ID()] = c.backoff
				err = errors.Join(r.Reverse(), r.Turn(c.turn))
			case left > 1:
				c.pending[r.ID()] = left - 1
			default:
				delete(c.pending, r.ID())
				err = errors.Join(r.Forward(c.speed), r.Turn(0))
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
}
