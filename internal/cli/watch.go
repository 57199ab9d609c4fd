package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/comment-wall/internal/wall"
)

func newWatchCmd() *cobra.Command {
	var width float64

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow new comments as they arrive",
		Long:  "Connect to the live wall and print every new comment until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), width)
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "screen width in px used for layout")

	return cmd
}

func runWatch(ctx context.Context, w io.Writer, width float64) error {
	p := &arrivalPrinter{w: w}
	return newAPIClient().Watch(ctx, width, p.handle)
}

// arrivalPrinter prints comments that were not in the previous view.
// The first view only primes the known set.
type arrivalPrinter struct {
	w      io.Writer
	known  map[string]struct{}
	banner bool
}

func (p *arrivalPrinter) handle(v wall.View) {
	if isJSON() {
		if err := printJSONLine(p.w, v); err != nil {
			fmt.Fprintf(os.Stderr, "warning: encoding view: %v\n", err)
		}
		return
	}

	if p.known == nil {
		p.known = make(map[string]struct{}, len(v.Bubbles))
		for _, b := range v.Bubbles {
			p.known[b.ID] = struct{}{}
		}
		fmt.Fprintf(p.w, "Watching %d comments. Press Ctrl-C to stop.\n", len(v.Bubbles))
		p.banner = v.Banner
		return
	}

	if v.Banner && !p.banner {
		fmt.Fprintln(p.w, "*** new comment ***")
	}
	p.banner = v.Banner

	next := make(map[string]struct{}, len(v.Bubbles))
	for i := len(v.Bubbles) - 1; i >= 0; i-- {
		b := v.Bubbles[i]
		next[b.ID] = struct{}{}
		if _, ok := p.known[b.ID]; !ok {
			fmt.Fprintf(p.w, "[%s] %s\n", time.UnixMilli(b.CreatedAt).Format("15:04:05"), b.Display)
		}
	}
	p.known = next
}
