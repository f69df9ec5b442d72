package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ravens/internal/partition"
	"ravens/internal/ui"
)

func newPlacementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placement [program]",
		Short: "Show the placement map as a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only, _ := cmd.Flags().GetString("only")
			var filter partition.Placement
			if only != "" {
				if err := filter.UnmarshalText([]byte(only)); err != nil || !filter.Concrete() {
					return fmt.Errorf("invalid --only value %q (expected server|client|shared)", only)
				}
			}

			out, s, err := runPhase(cmd, args)
			if err != nil {
				return err
			}
			printDiagnostics(cmd, out, s)
			if out.Result != nil && out.Result.Output != nil {
				w := cmd.OutOrStdout()
				fmt.Fprint(w, ui.RenderPlacements(out.Result.Output, ui.TableOpts{
					Color:  s.color,
					Width:  widthOf(w),
					Filter: filter,
				}))
			}
			return outcomeError(out, s)
		},
	}
	cmd.Flags().String("only", "", "show only declarations with this placement (server|client|shared)")
	return cmd
}

func widthOf(w io.Writer) int {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		return terminalWidth(f)
	}
	return 100
}
