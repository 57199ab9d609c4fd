// Package cli defines the cobra command tree for the comment wall.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/comment-wall/internal/client"
)

var flagFormat string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wall",
		Short:         "Run and talk to an event comment wall",
		Long:          "A live comment wall for events. Guests post short comments from their phones and every wall screen shows them as floating bubbles. Run the server or post, list and watch comments from the CLI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")

	root.AddCommand(
		newServeCmd(),
		newPostCmd(),
		newListCmd(),
		newWatchCmd(),
		newLayoutCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// newAPIClient creates an HTTP client for the wall API.
func newAPIClient() *client.Client {
	return client.New(getServerURL())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}
