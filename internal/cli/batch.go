package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/avatarsim/internal/config"
	"github.com/zeusync/avatarsim/internal/sim"
	"github.com/zeusync/avatarsim/pkg/concurrent"
)

// BatchOptions holds the flags of the batch command.
type BatchOptions struct {
	Seeds    []string
	Duration float64
	Workers  int
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run one headless simulation per spawn seed and print the outcomes",
		Long: `Runs an independent simulation for every seed, as fast as possible and
in parallel, and prints the final snapshot of each in seed order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			results, err := runBatch(cmd.Context(), *cfg, opts)
			if err != nil {
				return err
			}
			for i, snap := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "seed=%s %s\n", opts.Seeds[i], snap)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.Seeds, "seeds", []string{"a", "b", "c", "d"}, "spawn seeds, one simulation each")
	cmd.Flags().Float64VarP(&opts.Duration, "duration", "d", 60, "simulated seconds per run")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel runs (0 = unlimited)")

	return cmd
}

func runBatch(ctx context.Context, cfg config.Config, opts *BatchOptions) ([]sim.Snapshot, error) {
	return concurrent.Map(ctx, opts.Seeds, opts.Workers, func(ctx context.Context, seed string) (sim.Snapshot, error) {
		run := cfg
		run.Enemies.Seed = seed
		s, err := sim.New(run, sim.Deps{})
		if err != nil {
			return sim.Snapshot{}, err
		}
		if err := s.Run(ctx, opts.Duration, nil); err != nil {
			return sim.Snapshot{}, err
		}
		return s.Snapshot(), nil
	})
}
