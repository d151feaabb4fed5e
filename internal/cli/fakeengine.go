package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kibitz/internal/fakeengine"
)

// NewFakeEngineCommand creates the hidden fake-engine command, a scripted
// UCI engine for demos and manual testing:
//
//	kibitz --engine kibitz --engine-arg fake-engine --engine-arg --script=s.yaml tui
func NewFakeEngineCommand(rootOpts *RootOptions) *cobra.Command {
	var script string

	cmd := &cobra.Command{
		Use:    "fake-engine",
		Short:  "Run a scripted UCI engine on stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := fakeengine.Main(script); code != ExitSuccess {
				return NewExitError(code, fmt.Sprintf("fake engine exited with status %d", code))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "path to the engine script (YAML)")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}
