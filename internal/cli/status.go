package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to the wall server",
		Long:  "Tests the connection to the server and shows which comment store it is using.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(w io.Writer) error {
	serverURL := getServerURL()

	h, err := newAPIClient().Health()

	if isJSON() {
		resp := map[string]string{"server": serverURL, "status": "unreachable"}
		if err == nil {
			resp["status"] = h.Status
			resp["store"] = h.Store
		}
		return printJSON(w, resp)
	}

	fmt.Fprintf(w, "Server: %s\n", serverURL)
	if err != nil {
		fmt.Fprintf(w, "Status: ✗ cannot reach server (%v)\n", err)
		return nil
	}
	fmt.Fprintf(w, "Status: ✓ %s\n", h.Status)
	fmt.Fprintf(w, "Store:  %s\n", h.Store)
	return nil
}
