// Package cli implements the avatarsim command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "avatarsim",
		Short: "Headless avatar IK and creature simulation",
		Long: `Drives a tracked avatar rig through CCD inverse kinematics while
creatures spawn, seek the player and get stunned by hand hits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file (defaults when empty)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewValidateRigCommand())
	cmd.AddCommand(NewDefaultsCommand())

	return cmd
}
