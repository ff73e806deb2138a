package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/storygraph/internal/pagelabel"
	"github.com/dgallion1/storygraph/internal/render"
	"github.com/dgallion1/storygraph/internal/story"
)

// PageRef is an opaque page identity used by named destinations.
type PageRef string

// Document is a parsed, page-addressable source document.
type Document interface {
	NumberOfPages() int
	// NumberingDescriptors returns nil when the document has no label table.
	NumberingDescriptors() []pagelabel.Descriptor
	RenderEvents(pageIndex int) ([]render.Event, error)
	LinkAnnotations(pageIndex int) ([]story.LinkAnnotation, error)
	NamedDestinations() map[string]PageRef
	// PageNumber maps a page identity to its 1-based page number.
	PageNumber(ref PageRef) (int, bool)
	Close() error
}

// Labeler is implemented by documents whose pages carry their own labels
// (heading text, data attributes) instead of a numbering table.
type Labeler interface {
	PageLabels() []string
}

// Parser opens raw document bytes as a Document.
type Parser interface {
	Open(r io.Reader, filename string) (Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// DestinationTable resolves every named destination of doc to a page
// number. Names whose page identity is unknown are left out, so links to
// them surface as unresolved.
func DestinationTable(doc Document) map[string]int {
	named := doc.NamedDestinations()
	out := make(map[string]int, len(named))
	for name, ref := range named {
		if n, ok := doc.PageNumber(ref); ok {
			out[name] = n
		}
	}
	return out
}
