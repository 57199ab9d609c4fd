package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var max int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest comments",
		Long:  "List the latest comments on the wall, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), max)
		},
	}

	cmd.Flags().IntVar(&max, "max", 0, "maximum number of comments (default: server setting)")

	return cmd
}

func runList(w io.Writer, max int) error {
	items, err := newAPIClient().ListComments(max)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, items)
	}

	return printCommentTable(w, items)
}
