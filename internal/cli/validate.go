package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zeusync/avatarsim/internal/core/rig"
	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// NewValidateRigCommand creates the validate-rig command.
func NewValidateRigCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate-rig <descriptor.yaml>",
		Short: "Check a rig descriptor and report which chains resolve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateRig(cmd, args[0], strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a chain is disabled")

	return cmd
}

func validateRig(cmd *cobra.Command, path string, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	desc, err := rig.LoadDescriptor(f)
	if err != nil {
		return err
	}
	r, err := rig.New(desc, rig.Options{Root: spatial.Identity()}, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rig %q: %d bones, %d colliders\n", r.Name(), r.Skeleton().Len(), len(r.Colliders()))
	disabled := 0
	for _, c := range r.Chains() {
		status := "ok"
		if !c.Enabled {
			status = "disabled"
			disabled++
		}
		fmt.Fprintf(out, "  chain %-12s slot=%-6s links=%d %s\n", c.Name, c.Slot, len(c.Links), status)
	}
	if strict && disabled > 0 {
		return fmt.Errorf("%d chain(s) disabled", disabled)
	}
	return nil
}
