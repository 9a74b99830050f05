package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/avatarsim/internal/config"
	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/injector"
	"github.com/zeusync/avatarsim/internal/sim"
)

// RunOptions holds the flags of the run command.
type RunOptions struct {
	Duration float64
	Rate     float64
	Report   float64
	Realtime bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation against the scripted tracking sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.Rate > 0 {
				cfg.Tick.Rate = opts.Rate
			}
			return runSimulation(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Float64VarP(&opts.Duration, "duration", "d", 30, "simulated seconds to run")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "ticks per second (overrides tick.rate)")
	cmd.Flags().Float64Var(&opts.Report, "report", 1, "simulated seconds between status lines")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "pace ticks to the wall clock")

	return cmd
}

func runSimulation(ctx context.Context, cfg *config.Config, opts *RunOptions, out io.Writer) error {
	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	logger := app.Logger.Named("run")
	logger.Info("starting",
		log.Float64("duration", opts.Duration),
		log.Float64("rate", cfg.Tick.Rate),
		log.Bool("realtime", opts.Realtime),
	)

	snapshots := make(chan sim.Snapshot, 16)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(snapshots)
		return drive(ctx, app.Sim, cfg.Tick.Delta(), opts, snapshots)
	})

	group.Go(func() error {
		var last sim.Snapshot
		for snap := range snapshots {
			last = snap
			if _, err := fmt.Fprintln(out, snap); err != nil {
				return err
			}
		}
		logger.Info("finished",
			log.Int("ticks", int(last.Tick)),
			log.Int("spawned", last.TotalSpawned),
			log.Int("stuns", last.TotalStuns),
			log.Int("effects", last.TotalEffects),
		)
		logger.Debug("events published", app.Events.Fields()...)
		return nil
	})

	return group.Wait()
}

// drive steps s until opts.Duration and emits a snapshot every opts.Report
// simulated seconds, or only the final one when Report is not positive.
func drive(ctx context.Context, s *sim.Simulation, delta float64, opts *RunOptions, snapshots chan<- sim.Snapshot) error {
	var ticker *time.Ticker
	if opts.Realtime {
		ticker = time.NewTicker(time.Duration(delta * float64(time.Second)))
		defer ticker.Stop()
	}

	nextReport := opts.Report
	var snap sim.Snapshot
	for snap.Time < opts.Duration {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		// component errors are logged by the simulation and do not stop the run
		_ = s.Step()
		snap = s.Snapshot()

		if opts.Report > 0 && snap.Time+1e-9 >= nextReport {
			nextReport += opts.Report
			if err := emit(ctx, snapshots, snap); err != nil {
				return err
			}
		}
	}
	if opts.Report <= 0 {
		return emit(ctx, snapshots, snap)
	}
	return nil
}

func emit(ctx context.Context, ch chan<- sim.Snapshot, snap sim.Snapshot) error {
	select {
	case ch <- snap:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
