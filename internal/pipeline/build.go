package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/storygraph/internal/classify"
	"github.com/dgallion1/storygraph/internal/linker"
	"github.com/dgallion1/storygraph/internal/pagelabel"
	"github.com/dgallion1/storygraph/internal/parser"
	"github.com/dgallion1/storygraph/internal/render"
	"github.com/dgallion1/storygraph/internal/story"
)

// BuildOptions tunes one build. The callbacks are optional.
type BuildOptions struct {
	SubBookPrefix string

	OnPhase func(status JobStatus)
	OnPage  func(done, total int)
}

func (o BuildOptions) phase(s JobStatus) {
	if o.OnPhase != nil {
		o.OnPhase(s)
	}
}

// PageReport is everything the first pass learns about one page.
type PageReport struct {
	Number     int                    `json:"pdf_page_number"`
	Label      string                 `json:"label"`
	Blocks     []render.TextBlock     `json:"blocks"`
	ImageCount int                    `json:"image_count"`
	Tags       []story.Tag            `json:"tags"`
	WordCount  int                    `json:"word_count"`
	Links      []story.LinkAnnotation `json:"links"`
	Errors     []string               `json:"errors,omitempty"`
}

// OpenDocument picks a parser by file extension and opens data with it.
func OpenDocument(data []byte, filename string) (parser.Document, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := p.Open(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

// PageLabels returns one label per page. A numbering table wins; without
// one, sources that carry their own page names (Markdown headings, HTML
// sections) use those, and anything else falls back to raw page numbers.
func PageLabels(doc parser.Document, log *slog.Logger) []string {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	n := doc.NumberOfPages()
	if labels, ok := pagelabel.Decode(doc.NumberingDescriptors(), n); ok {
		return labels
	}
	if l, ok := doc.(parser.Labeler); ok {
		log.Info("no page label table, using source page names")
		return l.PageLabels()
	}
	log.Info("no page label table, using raw page numbers")
	return pagelabel.RawLabels(n)
}

// InspectPage runs the first pass over the page at index: group its render
// events, classify it and collect its links with choice text filled in.
// Content or annotation errors are recorded on the report, never returned.
func InspectPage(doc parser.Document, index int, label string, c classify.Classifier) PageReport {
	rep := PageReport{Number: index + 1, Label: label}

	events, err := doc.RenderEvents(index)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("content: %s", err))
		events = nil
	}
	res := render.Group(events)
	rep.Blocks = res.Blocks
	rep.ImageCount = res.ImageCount
	rep.Tags = c.ClassifyResult(label, res).Sorted()
	rep.WordCount = render.WordCount(events)

	annots, err := doc.LinkAnnotations(index)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("annotations: %s", err))
	}
	for _, a := range annots {
		if a.Text == "" && a.Region != nil {
			a.Text = render.RegionText(events, *a.Region)
		}
		rep.Links = append(rep.Links, a)
	}
	return rep
}

// BuildDocument runs both passes over doc: label decoding, then per page
// grouping and classification, then link resolution.
func BuildDocument(ctx context.Context, doc parser.Document, opts BuildOptions, log *slog.Logger) (*story.Graph, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	opts.phase(StatusLabeling)
	labels := PageLabels(doc, log)
	total := len(labels)

	opts.phase(StatusClassifying)
	c := classify.New(opts.SubBookPrefix)
	pages := make([]story.PageRecord, 0, total)
	annots := make(map[int][]story.LinkAnnotation)
	for i, label := range labels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep := InspectPage(doc, i, label, c)
		for _, e := range rep.Errors {
			log.Warn("page anomaly", "page", rep.Number, "error", e)
		}
		log.Debug("page classified", "page", rep.Number, "label", label,
			"blocks", len(rep.Blocks), "images", rep.ImageCount, "tags", rep.Tags)

		pages = append(pages, story.PageRecord{
			PDFPageNumber: rep.Number,
			Label:         label,
			Tags:          story.NewTagSet(rep.Tags...),
			WordCount:     rep.WordCount,
		})
		if len(rep.Links) > 0 {
			annots[rep.Number] = rep.Links
		}
		if opts.OnPage != nil {
			opts.OnPage(i+1, total)
		}
	}
	log.Info("pages classified", "pages", total, "with_links", len(annots))

	opts.phase(StatusLinking)
	g, err := linker.NewBuilder(log).Build(pages, annots, parser.DestinationTable(doc))
	if err != nil {
		return nil, fmt.Errorf("link pages: %w", err)
	}
	return g, nil
}
