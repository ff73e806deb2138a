package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/storygraph/internal/pagelabel"
	"github.com/dgallion1/storygraph/internal/render"
	"github.com/dgallion1/storygraph/internal/story"
)

// flowPage is one page of a flow-layout source (Markdown, HTML).
type flowPage struct {
	label  string
	events []render.Event
	annots []story.LinkAnnotation
}

// flowDocument serves Document for sources that are split into pages by
// structure rather than by a page tree.
type flowDocument struct {
	pages []*flowPage
	dests map[string]PageRef
}

func (d *flowDocument) NumberOfPages() int { return len(d.pages) }
func (d *flowDocument) NumberingDescriptors() []pagelabel.Descriptor { return nil }
func (d *flowDocument) NamedDestinations() map[string]PageRef { return d.dests }
func (d *flowDocument) Close() error { return nil }

func (d *flowDocument) RenderEvents(pageIndex int) ([]render.Event, error) {
	p, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}
	return p.events, nil
}

func (d *flowDocument) LinkAnnotations(pageIndex int) ([]story.LinkAnnotation, error) {
	p, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}
	return p.annots, nil
}

func (d *flowDocument) PageNumber(ref PageRef) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(string(ref), "page-%d", &n); err != nil {
		return 0, false
	}
	if n < 1 || n > len(d.pages) {
		return 0, false
	}
	return n, true
}

func (d *flowDocument) PageLabels() []string {
	labels := make([]string, len(d.pages))
	for i, p := range d.pages {
		labels[i] = p.label
	}
	return labels
}

func (d *flowDocument) page(i int) (*flowPage, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", i, len(d.pages))
	}
	return d.pages[i], nil
}

func flowRef(pageIndex int) PageRef {
	return PageRef(fmt.Sprintf("page-%d", pageIndex+1))
}

// Font identities used by flow sources.
const (
	fontBody     = "body"
	fontEmphasis = "emphasis"
	fontStrong   = "strong"
	fontCode     = "code"
	fontHeading  = "heading"
)

// flowSpaceWidth is the nominal space width of a flow font.
func flowSpaceWidth(font string) float64 {
	switch font {
	case fontCode:
		return 6
	case fontHeading:
		return 4.5
	case fontStrong:
		return 3.1
	}
	return 2.75
}

// flowBuilder accumulates pages for flow-layout sources.
type flowBuilder struct {
	pages []*flowPage
	dests map[string]PageRef
	fonts []string
}

func newFlowBuilder() *flowBuilder {
	return &flowBuilder{dests: make(map[string]PageRef)}
}

func (b *flowBuilder) startPage(label string) {
	b.pages = append(b.pages, &flowPage{label: label})
}

// current returns the open page, creating an unlabeled one for content
// that precedes the first page break.
func (b *flowBuilder) current() *flowPage {
	if len(b.pages) == 0 {
		b.startPage("")
	}
	return b.pages[len(b.pages)-1]
}

func (b *flowBuilder) font() string {
	if len(b.fonts) == 0 {
		return fontBody
	}
	return b.fonts[len(b.fonts)-1]
}

func (b *flowBuilder) pushFont(f string) { b.fonts = append(b.fonts, f) }

func (b *flowBuilder) popFont() {
	if len(b.fonts) > 0 {
		b.fonts = b.fonts[:len(b.fonts)-1]
	}
}

// boundary closes the current block. Whitespace at block edges is dropped.
func (b *flowBuilder) boundary() {
	p := b.current()
	n := len(p.events)
	if n > 0 && p.events[n-1].Kind == render.KindText {
		last := &p.events[n-1]
		last.Text = strings.TrimRight(last.Text, " \t\r\n")
		if last.Text == "" {
			p.events = p.events[:n-1]
			n--
		}
	}
	if n > 0 && p.events[n-1].Kind == render.KindRunBoundary {
		return
	}
	p.events = append(p.events, render.RunBoundary())
}

func (b *flowBuilder) text(s string) { b.textAs(b.font(), s) }

func (b *flowBuilder) textAs(font, s string) {
	p := b.current()
	if n := len(p.events); n == 0 || p.events[n-1].Kind == render.KindRunBoundary {
		s = strings.TrimLeft(s, " \t\r\n")
	}
	if s == "" {
		return
	}
	p.events = append(p.events, render.Text(s, font, flowSpaceWidth(font)))
}

func (b *flowBuilder) image() {
	p := b.current()
	p.events = append(p.events, render.Image())
}

func (b *flowBuilder) destination(id string) {
	if id == "" {
		return
	}
	if _, exists := b.dests[id]; exists {
		return
	}
	b.current()
	b.dests[id] = flowRef(len(b.pages) - 1)
}

// link records an in-document link. Links to other documents are not
// story links and are dropped.
func (b *flowBuilder) link(href, linkText string) {
	if !strings.HasPrefix(href, "#") {
		return
	}
	p := b.current()
	p.annots = append(p.annots, story.LinkAnnotation{
		Destination: strings.TrimPrefix(href, "#"),
		Text:        render.CleanText(linkText),
	})
}

func (b *flowBuilder) document() *flowDocument {
	return &flowDocument{pages: b.pages, dests: b.dests}
}
