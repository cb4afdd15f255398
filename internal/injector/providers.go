// Package injector assembles the logger, world, simulation and snapshot
// stream for a scenario. InitializeApp is generated by wire from
// injector.go.
package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/sim"
	"github.com/zeusync/robosim/internal/core/world"
	"github.com/zeusync/robosim/internal/server"
)

// App bundles everything a scenario run needs. Stream is nil when the
// scenario has no listen address.
type App struct {
	Scenario *config.Scenario
	Logger   *log.Logger
	World    *world.World
	Sim      *sim.Simulation
	Stream   *server.Stream
}

var ProviderSet = wire.NewSet(
	provideLogger,
	provideWorld,
	provideStream,
	provideSimulation,
	wire.Struct(new(App), "*"),
)

func provideLogger(scenario *config.Scenario) *log.Logger {
	return log.Provide(scenario.Simulation.LogLevel)
}

func provideWorld(scenario *config.Scenario, logger *log.Logger) (*world.World, error) {
	return scenario.Build(logger)
}

func provideStream(scenario *config.Scenario, logger *log.Logger) *server.Stream {
	if scenario.Simulation.Listen == "" {
		return nil
	}
	cfg := server.DefaultServerConfig()
	cfg.ListenAddr = scenario.Simulation.Listen
	return server.NewStream(cfg, logger)
}

func provideSimulation(scenario *config.Scenario, w *world.World, logger *log.Logger, stream *server.Stream) (*sim.Simulation, error) {
	opts := scenario.SimOptions(logger)
	if stream != nil {
		opts = append(opts, sim.WithObserver(stream))
	}
	return sim.New(w, opts...)
}
