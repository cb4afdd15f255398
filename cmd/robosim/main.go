package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/injector"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "robosim:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("robosim", flag.ContinueOnError)
	path := fs.String("config", "", "scenario file (.yaml, .toml or .json)")
	steps := fs.Int("steps", 0, "steps to run, negative runs until interrupted")
	realTime := fs.Bool("realtime", false, "pace steps to wall-clock time")
	listen := fs.String("listen", "", "serve snapshots on this address")
	level := fs.String("log-level", "", "debug, info, warn, error or silent")
	speed := fs.Float64("speed", 1, "wander forward speed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		fs.Usage()
		return errors.New("-config is required")
	}

	scenario, err := config.Load(*path)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "steps":
			scenario.Simulation.Steps = *steps
		case "realtime":
			scenario.Simulation.RealTime = *realTime
		case "listen":
			scenario.Simulation.Listen = *listen
		case "log-level":
			scenario.Simulation.LogLevel = *level
		}
	})

	app, err := injector.InitializeApp(scenario)
	if err != nil {
		return err
	}
	defer func() { _ = app.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.Stream != nil {
		if err := app.Stream.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = app.Stream.Close() }()
	}

	if err := app.Sim.Sense(); err != nil {
		return err
	}
	opts := scenario.RunOptions()
	app.Logger.Info("Starting simulation",
		log.String("config", *path),
		log.Int("robots", len(app.World.Robots())),
		log.Int("steps", opts.Steps),
		log.Bool("real_time", opts.RealTime),
	)
	runErr := app.Sim.Run(ctx, newWanderer(*speed, 2, 10).Control(), opts)

	snap := app.World.Snapshot()
	fmt.Printf("steps=%d time=%.3f fingerprint=%016x\n", snap.Steps, snap.Time, snap.Fingerprint())
	for _, r := range snap.Robots {
		fmt.Printf("  %-12s x=%8.3f y=%8.3f heading=%6.3f stalled=%t\n", r.Name, r.Pose.X, r.Pose.Y, r.Pose.Heading, r.Stalled)
	}
	return runErr
}
