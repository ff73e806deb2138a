package render

import "strings"

// TextBlock is text accumulated under one (font, truncated space width) key.
type TextBlock struct {
	Font       string `json:"font"`
	SpaceWidth int    `json:"space_width"`
	Text       string `json:"text"`
}

// Result is the grouped view of one page.
type Result struct {
	Blocks     []TextBlock
	ImageCount int
}

// Grouper is the stateful consumer of a page's event stream. The zero value
// is ready to use.
type Grouper struct {
	blocks []*openBlock
	images int
	// open reports whether the last block may still take text. Run
	// boundaries clear it.
	open bool
}

type openBlock struct {
	font  string
	width int
	text  strings.Builder
}

// BeginRun opens a grouping scope. The next text always starts a new block.
func (g *Grouper) BeginRun() { g.open = false }

// EndRun closes a grouping scope. The next text always starts a new block.
func (g *Grouper) EndRun() { g.open = false }

// OnText appends text to the last block when the font identity and the
// truncated space width both match it; otherwise it starts a new block.
func (g *Grouper) OnText(text, font string, spaceWidth float64) {
	width := int(spaceWidth)
	if g.open {
		if last := g.blocks[len(g.blocks)-1]; last.font == font && last.width == width {
			last.text.WriteString(text)
			return
		}
	}
	b := &openBlock{font: font, width: width}
	b.text.WriteString(text)
	g.blocks = append(g.blocks, b)
	g.open = true
}

// OnImage counts an image paint. Block state is untouched.
func (g *Grouper) OnImage() { g.images++ }

// Result returns the blocks and image count seen so far. It does not modify
// the grouper and may be called any number of times.
func (g *Grouper) Result() Result {
	blocks := make([]TextBlock, len(g.blocks))
	for i, b := range g.blocks {
		blocks[i] = TextBlock{Font: b.font, SpaceWidth: b.width, Text: b.text.String()}
	}
	return Result{Blocks: blocks, ImageCount: g.images}
}

// Feed dispatches a single event.
func (g *Grouper) Feed(ev Event) {
	switch ev.Kind {
	case KindText:
		g.OnText(ev.Text, ev.Font, ev.SpaceWidth)
	case KindImage:
		g.OnImage()
	case KindRunBoundary:
		g.EndRun()
	}
}

// Group folds an event sequence through a fresh Grouper.
func Group(events []Event) Result {
	var g Grouper
	for _, ev := range events {
		g.Feed(ev)
	}
	return g.Result()
}
