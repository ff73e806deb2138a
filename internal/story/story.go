package story

import (
	"strings"

	"github.com/dgallion1/storygraph/internal/render"
)

// Tag is a structural role assigned to a page.
type Tag string

const (
	TagImagePage Tag = "ImagePage"
	TagEndPage   Tag = "EndPage"
	TagSubBook   Tag = "SubBook"
	TagIgnore    Tag = "Ignore"
)

// AllTags lists every tag in a stable order.
var AllTags = []Tag{TagImagePage, TagEndPage, TagSubBook, TagIgnore}

// ParseTag maps a tag name (case-insensitive) to a Tag.
func ParseTag(s string) (Tag, bool) {
	for _, t := range AllTags {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// TagSet is an unordered set of tags. The empty set marks a plain page.
type TagSet map[Tag]struct{}

// NewTagSet builds a set from tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t. Tags are never removed.
func (s TagSet) Add(t Tag) { s[t] = struct{}{} }

// Has reports whether t is in the set.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// HasAll reports whether every tag in want is present.
func (s TagSet) HasAll(want []Tag) bool {
	for _, t := range want {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// Sorted returns the tags in AllTags order.
func (s TagSet) Sorted() []Tag {
	out := make([]Tag, 0, len(s))
	for _, t := range AllTags {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Strings returns the sorted tag names.
func (s TagSet) Strings() []string {
	tags := s.Sorted()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// PageRecord is one document page in the graph.
type PageRecord struct {
	PDFPageNumber int    // 1-based
	Label         string // decoded page label, may be empty
	Tags          TagSet
	WordCount     int
}

// EdgeKind is the relation an edge expresses.
type EdgeKind string

const (
	EdgeContinues EdgeKind = "Continues"
	EdgeChoice    EdgeKind = "Choice"
)

// Edge is a directed relation between two pages, by page number.
type Edge struct {
	From       int
	To         int
	Kind       EdgeKind
	ChoiceText string // Choice edges only
	WordCount  int    // word count of the target page
}

// LinkAnnotation is a raw clickable link on a page.
type LinkAnnotation struct {
	Destination string       `json:"destination"`      // named destination, may be empty
	Region      *render.Rect `json:"region,omitempty"` // clickable area in user space
	Text        string       `json:"text,omitempty"`   // inline link text, when the source has it
}

// WarningKind classifies a non-fatal build anomaly.
type WarningKind string

const (
	WarnUnresolvedDestination WarningKind = "unresolved_destination"
	WarnMissingTargetPage     WarningKind = "missing_target_page"
)

// Warning records a per-page anomaly found while linking.
type Warning struct {
	Kind        WarningKind `json:"kind"`
	Page        int         `json:"page"`
	Destination string      `json:"destination,omitempty"`
	Target      int         `json:"target,omitempty"`
	Message     string      `json:"message"`
}

// Graph is the built story graph. It is not modified after Build returns.
type Graph struct {
	Pages    []PageRecord
	Edges    []Edge
	Warnings []Warning
}

// Page returns the record with the given page number.
func (g *Graph) Page(number int) (PageRecord, bool) {
	for _, p := range g.Pages {
		if p.PDFPageNumber == number {
			return p, true
		}
	}
	return PageRecord{}, false
}

// Outbound returns the edges leaving page number, in creation order.
func (g *Graph) Outbound(number int) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == number {
			out = append(out, e)
		}
	}
	return out
}

// CountTag returns how many pages carry t.
func (g *Graph) CountTag(t Tag) int {
	n := 0
	for _, p := range g.Pages {
		if p.Tags.Has(t) {
			n++
		}
	}
	return n
}
