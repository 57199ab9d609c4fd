package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/evcraddock/comment-wall/internal/client"
	"github.com/evcraddock/comment-wall/internal/comment"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printJSONLine writes v as one line of JSON.
func printJSONLine(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

// printCommentTable prints comments as a formatted table.
func printCommentTable(out io.Writer, items []comment.Comment) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "No comments yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "TIME\tNAME\tCOMMENT"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "----\t----\t-------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, c := range items {
		name := c.Name
		if name == "" {
			name = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
			c.Created().Format(timeLayout), truncate(name, 20), truncate(c.Text, 60)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d comments\n", len(items))
	return nil
}

// printPlacementTable prints bubble placements as a formatted table.
func printPlacementTable(out io.Writer, resp *client.LayoutResponse) error {
	fmt.Fprintf(out, "Viewport: %gpx\n\n", resp.Viewport)
	if len(resp.Placements) == 0 {
		fmt.Fprintln(out, "No comments yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tROW\tLEFT\tWIDTH\tHEIGHT"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, p := range resp.Placements {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%.2f%%\t%d\t%d\n", p.ID, p.Row, p.Left, p.Width, p.Height); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

const timeLayout = "2006-01-02 15:04:05"

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
