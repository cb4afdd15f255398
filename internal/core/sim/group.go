package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one simulation to drive with RunAll.
type Job struct {
	Sim     *Simulation
	Control ControlFunc
	Options RunOptions
}

// RunAll runs independent simulations concurrently, one goroutine each. The
// first error cancels the others at their next step boundary and is
// returned once all have stopped.
func RunAll(ctx context.Context, jobs ...Job) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return job.Sim.Run(ctx, job.Control, job.Options)
		})
	}
	return g.Wait()
}
