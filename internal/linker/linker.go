// Package linker turns classified pages and raw link annotations into the
// story graph's edges.
package linker

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgallion1/storygraph/internal/story"
)

// ErrStructuralInvariant aborts a build whose node set is inconsistent.
var ErrStructuralInvariant = errors.New("structural invariant violated")

// Builder builds a story graph in two phases: nodes, then edges.
type Builder struct {
	log *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{log: log}
}

// Build indexes pages by page number, then resolves every page's
// annotations into Choice edges and adds a Continues edge where a page has
// no outbound edge and is not an end page. destinations maps a named
// destination to its 1-based target page number.
func (b *Builder) Build(pages []story.PageRecord, annotations map[int][]story.LinkAnnotation, destinations map[string]int) (*story.Graph, error) {
	index, err := b.indexPages(pages)
	if err != nil {
		return nil, err
	}

	for page := range annotations {
		if _, ok := index[page]; !ok {
			return nil, fmt.Errorf("annotations on page %d with no node: %w", page, ErrStructuralInvariant)
		}
	}

	ordered := make([]story.PageRecord, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PDFPageNumber < ordered[j].PDFPageNumber })

	g := &story.Graph{Pages: ordered}
	for _, p := range ordered {
		node, ok := index[p.PDFPageNumber]
		if !ok {
			return nil, fmt.Errorf("page %d missing from node index: %w", p.PDFPageNumber, ErrStructuralInvariant)
		}
		b.linkPage(g, node, annotations[node.PDFPageNumber], destinations, index)
	}

	b.log.Info("graph linked",
		"pages", len(g.Pages),
		"edges", len(g.Edges),
		"warnings", len(g.Warnings),
	)
	return g, nil
}

func (b *Builder) indexPages(pages []story.PageRecord) (map[int]story.PageRecord, error) {
	index := make(map[int]story.PageRecord, len(pages))
	for _, p := range pages {
		if p.PDFPageNumber < 1 {
			return nil, fmt.Errorf("page number %d is not positive: %w", p.PDFPageNumber, ErrStructuralInvariant)
		}
		if _, dup := index[p.PDFPageNumber]; dup {
			return nil, fmt.Errorf("duplicate page number %d: %w", p.PDFPageNumber, ErrStructuralInvariant)
		}
		index[p.PDFPageNumber] = p
	}
	return index, nil
}

func (b *Builder) linkPage(g *story.Graph, page story.PageRecord, annots []story.LinkAnnotation, destinations map[string]int, index map[int]story.PageRecord) {
	from := page.PDFPageNumber
	start := len(g.Edges)
	hasOutbound := false

	for _, a := range annots {
		target, ok := destinations[a.Destination]
		if !ok {
			b.log.Warn("unresolved destination", "page", from, "destination", a.Destination)
			g.Warnings = append(g.Warnings, story.Warning{
				Kind:        story.WarnUnresolvedDestination,
				Page:        from,
				Destination: a.Destination,
				Message:     fmt.Sprintf("link to unknown destination %q", a.Destination),
			})
			continue
		}
		to, ok := index[target]
		if !ok {
			b.log.Warn("link target page not found", "page", from, "destination", a.Destination, "target", target)
			g.Warnings = append(g.Warnings, story.Warning{
				Kind:        story.WarnMissingTargetPage,
				Page:        from,
				Destination: a.Destination,
				Target:      target,
				Message:     fmt.Sprintf("destination %q points at page %d which does not exist", a.Destination, target),
			})
			continue
		}
		if hasChoice(g.Edges[start:], to.PDFPageNumber) {
			continue
		}
		g.Edges = append(g.Edges, story.Edge{
			From:       from,
			To:         to.PDFPageNumber,
			Kind:       story.EdgeChoice,
			ChoiceText: a.Text,
			WordCount:  to.WordCount,
		})
		hasOutbound = true
	}

	if hasOutbound || page.Tags.Has(story.TagEndPage) {
		return
	}
	if next, ok := index[from+1]; ok {
		g.Edges = append(g.Edges, story.Edge{
			From:      from,
			To:        next.PDFPageNumber,
			Kind:      story.EdgeContinues,
			WordCount: next.WordCount,
		})
	}
}

func hasChoice(edges []story.Edge, to int) bool {
	for _, e := range edges {
		if e.Kind == story.EdgeChoice && e.To == to {
			return true
		}
	}
	return false
}
