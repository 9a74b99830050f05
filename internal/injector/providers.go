package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/avatarsim/internal/config"
	"github.com/zeusync/avatarsim/internal/core/events/bus"
	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/observability/metrics"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
	"github.com/zeusync/avatarsim/internal/core/tracking"
	"github.com/zeusync/avatarsim/internal/sim"
)

// App is the assembled headless process.
type App struct {
	Config *config.Config
	Logger log.Log
	Bus    bus.EventBus
	Events *metrics.EventCounter
	Sim    *sim.Simulation
}

// ProviderSet builds an App from a loaded config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideEventCounter,
	ProvideEngine,
	ProvideSource,
	ProvideSimulation,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) (log.Log, error) {
	logger, err := log.NewWithConfig(cfg.Log)
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

// ProvideEventCounter attaches a per-type event tally to the bus.
func ProvideEventCounter(eventBus bus.EventBus) *metrics.EventCounter {
	counter := metrics.NewEventCounter()
	eventBus.AddObserver(counter)
	return counter
}

func ProvideEngine() physics.Engine {
	return physics.NewWorld()
}

// ProvideSource replays the configured sweep; there is no device backend in
// a headless run.
func ProvideSource(cfg *config.Config) tracking.PoseSource {
	return tracking.NewScriptedSource(cfg.Tracking)
}

func ProvideSimulation(
	cfg *config.Config,
	logger log.Log,
	source tracking.PoseSource,
	engine physics.Engine,
	eventBus bus.EventBus,
) (*sim.Simulation, error) {
	return sim.New(*cfg, sim.Deps{
		Logger: logger,
		Source: source,
		Engine: engine,
		Bus:    eventBus,
	})
}
