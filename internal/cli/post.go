package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newPostCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "post <text...>",
		Short: "Post a comment to the wall",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd.OutOrStdout(), name, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (optional)")

	return cmd
}

func runPost(w io.Writer, name, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text is required")
	}

	id, err := newAPIClient().AddComment(name, text)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, map[string]string{"id": id})
	}
	fmt.Fprintf(w, "Posted %s\n", id)
	return nil
}
