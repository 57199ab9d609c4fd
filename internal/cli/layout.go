package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newLayoutCmd() *cobra.Command {
	var (
		width float64
		max   int
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show bubble placements for a screen width",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.OutOrStdout(), width, max)
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "screen width in px (default: server setting)")
	cmd.Flags().IntVar(&max, "max", 0, "maximum number of comments (default: server setting)")

	return cmd
}

func runLayout(w io.Writer, width float64, max int) error {
	resp, err := newAPIClient().Layout(width, max)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, resp)
	}

	return printPlacementTable(w, resp)
}
