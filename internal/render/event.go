// Package render groups a page's paint events into font-coherent text blocks.
package render

import "fmt"

// Kind discriminates an Event.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindRunBoundary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindRunBoundary:
		return "run_boundary"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one primitive paint operation reported for a page.
// Only KindText events carry the text fields.
type Event struct {
	Kind       Kind
	Text       string
	Font       string  // font identity as reported by the source
	SpaceWidth float64 // width of a single space in user space units

	// Baseline segment of the run in user space. Sources that have no
	// geometry leave these at zero.
	X, Y, EndX float64
}

// Text builds a text event without geometry.
func Text(text, font string, spaceWidth float64) Event {
	return Event{Kind: KindText, Text: text, Font: font, SpaceWidth: spaceWidth}
}

// PositionedText builds a text event whose baseline runs from (x, y) to (endX, y).
func PositionedText(text, font string, spaceWidth, x, y, endX float64) Event {
	return Event{Kind: KindText, Text: text, Font: font, SpaceWidth: spaceWidth, X: x, Y: y, EndX: endX}
}

// Image builds an image paint event.
func Image() Event { return Event{Kind: KindImage} }

// RunBoundary builds a grouping-scope boundary event.
func RunBoundary() Event { return Event{Kind: KindRunBoundary} }

// Rect is an axis-aligned rectangle in user space. Lower-left and
// upper-right corners may be given in either order.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// Normalize returns r with LL <= UR on both axes.
func (r Rect) Normalize() Rect {
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r
}
