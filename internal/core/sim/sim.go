// Package sim drives a world forward in fixed time steps. Each step applies
// every robot's velocity command, validates the candidate pose against the
// world, commits it, advances the clock and recomputes every sensor.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/collision"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/kinematics"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/world"
)

// DefaultTimeStep is the simulated duration of one step, in seconds.
const DefaultTimeStep = 0.1

// State is the scheduler lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ControlFunc is called before every step of Run. It reads sensors and
// issues commands; it must not keep references to the world between calls.
type ControlFunc func(w *world.World) error

// Observer receives a detached snapshot after every step.
type Observer interface {
	Observe(snap world.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(world.Snapshot)

func (f ObserverFunc) Observe(snap world.Snapshot) { f(snap) }

// Resolver validates a candidate pose; collision.Resolver is the
// implementation used unless WithResolver says otherwise.
type Resolver interface {
	Resolve(env collision.Environment, id uuid.UUID, radius float64, current, candidate kinematics.Pose) collision.Outcome
}

// RunOptions controls Run.
type RunOptions struct {
	// Steps is the number of steps to run. Negative runs until cancelled,
	// zero returns at once.
	Steps int
	// RealTime sleeps between steps so wall-clock time tracks simulated
	// time. Without it steps run back to back.
	RealTime bool
}

// Simulation owns the stepping of one world. It is driven from one
// goroutine; only Cancel, State and Err may be called from others.
type Simulation struct {
	world    *world.World
	dt       float64
	resolver Resolver
	clock    Clock
	logger   log.Log

	observers []Observer

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	failed error
}

// Option configures New.
type Option func(*Simulation)

// WithTimeStep sets the fixed step length in seconds.
func WithTimeStep(dt float64) Option {
	return func(s *Simulation) { s.dt = dt }
}

func WithLogger(l log.Log) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithClock replaces the wall clock used for real-time pacing.
func WithClock(c Clock) Option {
	return func(s *Simulation) { s.clock = c }
}

func WithResolver(r Resolver) Option {
	return func(s *Simulation) { s.resolver = r }
}

func WithObserver(o Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, o) }
}

// New prepares a simulation of w. The time step must be positive.
func New(w *world.World, opts ...Option) (*Simulation, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil world", world.ErrConfiguration)
	}
	s := &Simulation{
		world:    w,
		dt:       DefaultTimeStep,
		resolver: collision.Resolver{},
		clock:    SystemClock(),
		logger:   w.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !geometry.Finite(s.dt) || s.dt <= 0 {
		return nil, fmt.Errorf("%w: time step %g must be positive", world.ErrConfiguration, s.dt)
	}
	if s.logger == nil {
		s.logger = log.NewNop()
	}
	s.logger = s.logger.With(log.String("component", "sim"))
	return s, nil
}

func (s *Simulation) World() *world.World { return s.world }
func (s *Simulation) TimeStep() float64   { return s.dt }

// AddObserver registers o for every following step. Not safe during Run.
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Simulation) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the invariant failure that stopped the simulation, if any.
func (s *Simulation) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Step performs one fixed-dt advance outside of Run.
func (s *Simulation) Step() error {
	if err := s.acquire(); err != nil {
		return err
	}
	err := s.step()
	s.release(StateIdle)
	return err
}

// Sense recomputes every sensor reading without moving anything.
func (s *Simulation) Sense() error {
	if err := s.acquire(); err != nil {
		return err
	}
	for _, r := range s.world.Robots() {
		r.UpdateDevices()
	}
	s.release(StateIdle)
	return nil
}

// Cancel stops the current Run at the next step boundary. It is a no-op
// when nothing is running.
func (s *Simulation) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Run calls control and then steps, opts.Steps times or until ctx is done
// or Cancel is called. Cancellation is not an error: Run returns nil and
// the simulation is left Stopped with the world fully consistent.
func (s *Simulation) Run(ctx context.Context, control ControlFunc, opts RunOptions) error {
	ctx, cancel, err := s.acquireRun(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	s.logger.Debug("run started",
		log.Int("steps", opts.Steps),
		log.Bool("real_time", opts.RealTime),
		log.Float64("dt", s.dt),
	)

	start := s.clock.Now()
	done := 0
	cancelled := false
	for opts.Steps < 0 || done < opts.Steps {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if control != nil {
			if cerr := control(s.world); cerr != nil {
				err = fmt.Errorf("%w: step %d: %w", ErrControl, s.world.Steps(), cerr)
				break
			}
		}
		if err = s.step(); err != nil {
			break
		}
		done++
		if opts.RealTime {
			if s.pace(ctx, start, done) != nil {
				cancelled = true
				break
			}
		}
	}

	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	elapsed := s.clock.Now().Sub(start)

	switch {
	case err != nil:
		s.release(StateStopped)
		s.logger.Warn("run stopped", log.Int("steps_done", done), log.Error(err))
		return err
	case cancelled:
		s.release(StateStopped)
		s.logger.Info("run cancelled",
			log.Int("steps_done", done),
			log.Float64("time", s.world.Time()),
			log.Duration("elapsed", elapsed),
		)
		return nil
	default:
		s.release(StateIdle)
		s.logger.Debug("run finished",
			log.Int("steps_done", done),
			log.Float64("time", s.world.Time()),
			log.Duration("elapsed", elapsed),
		)
		return nil
	}
}

// pace sleeps until the wall clock has caught up with done steps.
func (s *Simulation) pace(ctx context.Context, start time.Time, done int) error {
	target := time.Duration(math.Round(float64(done) * s.dt * float64(time.Second)))
	wait := target - s.clock.Now().Sub(start)
	if wait <= 0 {
		return ctx.Err()
	}
	return s.clock.Sleep(ctx, wait)
}

func (s *Simulation) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquireLocked()
}

// acquireRun enters StateRunning and installs the cancel func under one
// lock, so a Cancel that sees StateRunning always reaches the run.
func (s *Simulation) acquireRun(ctx context.Context) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquireLocked(); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return ctx, cancel, nil
}

func (s *Simulation) acquireLocked() error {
	if s.failed != nil {
		return s.failed
	}
	if s.state == StateRunning {
		return ErrRunning
	}
	s.state = StateRunning
	return nil
}

func (s *Simulation) release(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed != nil {
		next = StateStopped
	}
	s.state = next
}

// step runs kinematics, collision and commit for every robot in insertion
// order, then advances the clock and updates sensors. Robots later in the
// order see the poses earlier robots committed this step.
func (s *Simulation) step() error {
	robots := s.world.Robots()
	for _, r := range robots {
		current := r.Pose()
		candidate, ok := kinematics.Integrate(current, r.Command(), s.dt)
		if !ok {
			s.logger.Warn("non-finite motion, holding pose",
				log.String("robot", r.Name()),
				log.Float64("forward", r.Command().Forward),
				log.Float64("turn", r.Command().Turn),
			)
		}

		out := s.resolver.Resolve(s.world, r.ID(), r.Radius(), current, candidate)
		if out.Stalled && !r.Stalled() {
			s.logger.Debug("robot stalled",
				log.String("robot", r.Name()),
				log.Stringer("blocker", out.Blocker.Kind),
				log.Uint64("step", s.world.Steps()),
			)
		}
		if err := s.world.Commit(r.ID(), out.Pose, out.Stalled); err != nil {
			return s.fail(err)
		}
	}

	s.world.Advance(s.dt)
	for _, r := range robots {
		r.UpdateDevices()
	}

	if len(s.observers) > 0 {
		snap := s.world.Snapshot()
		for _, o := range s.observers {
			o.Observe(snap)
		}
	}
	return nil
}

func (s *Simulation) fail(err error) error {
	err = fmt.Errorf("%w: %w", ErrFailed, err)
	s.logger.Error("invariant failure, stopping", log.Error(err))
	s.mu.Lock()
	s.failed = err
	s.mu.Unlock()
	return err
}

// IsFailure reports whether err came from an invariant failure rather than
// a control callback or configuration problem.
func IsFailure(err error) bool { return errors.Is(err, ErrFailed) }
