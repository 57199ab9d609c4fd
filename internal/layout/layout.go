// Package layout places wall bubbles left to right so that no two bubbles in
// the same row overlap horizontally.
package layout

import (
	"math"

	"github.com/evcraddock/comment-wall/internal/comment"
)

// Geometry in CSS pixels.
const (
	LeftMargin  = 40.0
	RightMargin = 40.0
	Gap         = 20.0

	baseWidth     = 120
	widthPerChar  = 6.0
	maxWidth      = 420
	baseHeight    = 52
	heightPerChar = 0.9
	maxHeight     = 140

	// DefaultViewport is used when the screen has not reported its width.
	DefaultViewport = 1920.0
)

// Placement positions one bubble.
type Placement struct {
	ID string `json:"id"`
	// Left is the bubble center as a percentage of the viewport width,
	// usable verbatim as a CSS left value with translateX(-50%).
	Left   float64 `json:"left"`
	Center float64 `json:"center"` // px from the viewport's left edge
	Width  int     `json:"width"`
	Height int     `json:"height"`
	// Row counts wraps back to the left margin. All rows share one band on
	// screen; they differ only in animation timing.
	Row int `json:"row"`
}

// Size returns the bubble size for a display text of length chars.
func Size(length int) (width, height int) {
	if length < 1 {
		length = 1
	}
	width = baseWidth + int(math.Floor(float64(length)*widthPerChar))
	if width > maxWidth {
		width = maxWidth
	}
	height = baseHeight + int(math.Floor(float64(length)*heightPerChar))
	if height > maxHeight {
		height = maxHeight
	}
	return width, height
}

// Compute places items in order for a viewport of the given width.
func Compute(items []comment.Comment, viewport float64) []Placement {
	out := make([]Placement, 0, len(items))
	right := viewport - RightMargin
	cursor := LeftMargin
	row := 0

	for _, c := range items {
		w, h := Size(c.DisplayLen())
		if cursor > LeftMargin && cursor+float64(w)+Gap > right {
			cursor = LeftMargin
			row++
		}

		center := cursor + float64(w)/2
		out = append(out, Placement{
			ID:     c.ID,
			Left:   percent(center, viewport),
			Center: center,
			Width:  w,
			Height: h,
			Row:    row,
		})

		cursor += float64(w) + Gap
	}

	return out
}

// percent converts px to a viewport percentage clamped to [0, 100].
func percent(px, viewport float64) float64 {
	if viewport <= 0 {
		return 0
	}
	p := px / viewport * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
