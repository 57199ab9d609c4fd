// Package comment provides the comment domain model and the data-access
// contract shared by the submission and wall views.
package comment

import (
	"sort"
	"strings"
	"time"
	"unicode/utf16"
)

// DefaultMax is the number of comments returned by reads and subscriptions
// when the caller does not ask for a specific cap.
const DefaultMax = 500

// nameSeparator joins the display name and the comment text on the wall.
const nameSeparator = "："

// Comment represents a visitor comment shown on the wall.
type Comment struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"comment"`
	CreatedAt int64  `json:"createdAt"` // milliseconds since epoch
}

// Display returns the text rendered inside a bubble.
func (c Comment) Display() string {
	if c.Name == "" {
		return c.Text
	}
	return c.Name + nameSeparator + c.Text
}

// DisplayLen returns the length of Display in UTF-16 code units, the unit
// browsers measure text in, never less than 1.
func (c Comment) DisplayLen() int {
	n := 0
	for _, r := range c.Display() {
		n += utf16.RuneLen(r)
	}
	if n < 1 {
		return 1
	}
	return n
}

// Created returns CreatedAt as a time.Time.
func (c Comment) Created() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

// Normalize trims name and text and validates that text is non-empty.
func Normalize(name, text string) (string, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", ErrValidation
	}
	return strings.TrimSpace(name), text, nil
}

// NowMillis returns the current time in milliseconds since epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// SortNewestFirst orders comments by CreatedAt descending, ties by ID descending.
func SortNewestFirst(items []Comment) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Less reports whether a sorts before b in newest-first order.
func Less(a, b Comment) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// Cap returns max, or DefaultMax when max is not positive.
func Cap(max int) int {
	if max <= 0 {
		return DefaultMax
	}
	return max
}

// IDs returns the set of ids in items.
func IDs(items []Comment) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, c := range items {
		set[c.ID] = struct{}{}
	}
	return set
}
