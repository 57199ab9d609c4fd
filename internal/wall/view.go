package wall

import (
	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/layout"
)

// View is the render state pushed to a wall screen.
type View struct {
	Bubbles  []Bubble `json:"bubbles"`
	Banner   bool     `json:"banner"`
	Empty    bool     `json:"empty"`
	Viewport float64  `json:"viewport"`
}

// Bubble is one positioned, animated comment.
type Bubble struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Text      string  `json:"comment"`
	Display   string  `json:"display"`
	CreatedAt int64   `json:"createdAt"`
	Left      float64 `json:"left"` // % of viewport width, bubble center
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Row       int     `json:"row"`
	// Duration is one rise across the screen and Delay the start offset,
	// both in seconds. Staggering by index keeps wrapped rows apart.
	Duration    float64 `json:"duration"`
	Delay       float64 `json:"delay"`
	Highlighted bool    `json:"highlighted"`
}

// Highlighted returns the ids currently flagged as new.
func (v View) Highlighted() []string {
	var ids []string
	for _, b := range v.Bubbles {
		if b.Highlighted {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func newBubble(index int, c comment.Comment, p layout.Placement, highlighted bool) Bubble {
	return Bubble{
		ID:          c.ID,
		Name:        c.Name,
		Text:        c.Text,
		Display:     c.Display(),
		CreatedAt:   c.CreatedAt,
		Left:        p.Left,
		Width:       p.Width,
		Height:      p.Height,
		Row:         p.Row,
		Duration:    riseDuration(index),
		Delay:       riseDelay(index),
		Highlighted: highlighted,
	}
}

func riseDuration(index int) float64 {
	return 15 + float64(index%5)*2
}

func riseDelay(index int) float64 {
	return float64(index) * 0.5
}
