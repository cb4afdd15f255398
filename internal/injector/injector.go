//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/robosim/internal/config"
)

// InitializeApp wires a runnable application from a loaded scenario.
func InitializeApp(scenario *config.Scenario) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
