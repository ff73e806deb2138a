package render

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// baselineSlack widens a region vertically; link rectangles are often drawn
// flush with the glyph box and the baseline sits on the lower edge.
const baselineSlack = 1.0

// InRegion keeps the text events whose baseline segment crosses r. Run
// boundaries and images are kept so grouping still sees the page structure.
func InRegion(events []Event, r Rect) []Event {
	r = r.Normalize()
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Kind != KindText || crosses(ev, r) {
			out = append(out, ev)
		}
	}
	return out
}

func crosses(ev Event, r Rect) bool {
	if ev.Y < r.LLY-baselineSlack || ev.Y > r.URY+baselineSlack {
		return false
	}
	x0, x1 := ev.X, ev.EndX
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	return x1 >= r.LLX && x0 <= r.URX
}

// RegionText groups the text inside r and joins the blocks into one
// NFC-normalised, whitespace-collapsed string.
func RegionText(events []Event, r Rect) string {
	return JoinBlocks(Group(InRegion(events, r)).Blocks)
}

// JoinBlocks joins block texts with single spaces.
func JoinBlocks(blocks []TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return CleanText(strings.Join(parts, " "))
}

// CleanText collapses whitespace runs and applies NFC normalisation.
func CleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// WordCount counts whitespace-separated words over every text event.
func WordCount(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == KindText {
			n += len(strings.Fields(ev.Text))
		}
	}
	return n
}
