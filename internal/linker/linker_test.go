package linker

import (
	"errors"
	"strconv"
	"testing"

	"github.com/dgallion1/storygraph/internal/story"
)

func makePages(n int) []story.PageRecord {
	pages := make([]story.PageRecord, n)
	for i := range pages {
		pages[i] = story.PageRecord{
			PDFPageNumber: i + 1,
			Label:         strconv.Itoa(i + 1),
			Tags:          story.NewTagSet(),
			WordCount:     (i + 1) * 10,
		}
	}
	return pages
}

func destTable(pages ...int) map[string]int {
	d := make(map[string]int, len(pages))
	for _, p := range pages {
		d["p"+strconv.Itoa(p)] = p
	}
	return d
}

func TestBuild_SplitLineLinksCollapse(t *testing.T) {
	pages := makePages(40)
	annots := map[int][]story.LinkAnnotation{
		10: {
			{Destination: "p25", Text: "If you open the door,"},
			{Destination: "p25", Text: "turn to 25"},
		},
	}
	g, err := NewBuilder(nil).Build(pages, annots, destTable(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := g.Outbound(10)
	if len(out) != 1 {
		t.Fatalf("expected 1 outbound edge, got %d: %+v", len(out), out)
	}
	e := out[0]
	if e.Kind != story.EdgeChoice || e.To != 25 {
		t.Errorf("expected Choice edge to 25, got %s to %d", e.Kind, e.To)
	}
	if e.ChoiceText != "If you open the door," {
		t.Errorf("expected first annotation to win, got %q", e.ChoiceText)
	}
	if e.WordCount != 250 {
		t.Errorf("expected target word count 250, got %d", e.WordCount)
	}
}

func TestBuild_LastPageIsSink(t *testing.T) {
	g, err := NewBuilder(nil).Build(makePages(40), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := g.Outbound(40); len(out) != 0 {
		t.Errorf("expected no outbound edges from last page, got %+v", out)
	}
	if out := g.Outbound(39); len(out) != 1 || out[0].Kind != story.EdgeContinues || out[0].To != 40 {
		t.Errorf("expected Continues 39->40, got %+v", out)
	}
	if len(g.Edges) != 39 {
		t.Errorf("expected 39 edges, got %d", len(g.Edges))
	}
}

func TestBuild_FallbackExclusivity(t *testing.T) {
	pages := makePages(6)
	pages[2].Tags.Add(story.TagEndPage) // page 3
	annots := map[int][]story.LinkAnnotation{
		1: {{Destination: "p4"}, {Destination: "p5"}},
		5: {{Destination: "missing"}},
	}
	g, err := NewBuilder(nil).Build(pages, annots, destTable(4, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range g.Outbound(1) {
		if e.Kind == story.EdgeContinues {
			t.Errorf("expected page with choices to have no Continues edge, got %+v", e)
		}
	}
	if n := len(g.Outbound(1)); n != 2 {
		t.Errorf("expected 2 choices from page 1, got %d", n)
	}
	if out := g.Outbound(3); len(out) != 0 {
		t.Errorf("expected end page to be a sink, got %+v", out)
	}
	// unresolved annotation produces no edge, so the fallback still applies
	if out := g.Outbound(5); len(out) != 1 || out[0].Kind != story.EdgeContinues || out[0].To != 6 {
		t.Errorf("expected Continues 5->6, got %+v", out)
	}
}

func TestBuild_EndPageKeepsChoices(t *testing.T) {
	pages := makePages(3)
	pages[0].Tags.Add(story.TagEndPage)
	g, err := NewBuilder(nil).Build(pages, map[int][]story.LinkAnnotation{1: {{Destination: "p3"}}}, destTable(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := g.Outbound(1)
	if len(out) != 1 || out[0].Kind != story.EdgeChoice {
		t.Errorf("expected only a Choice edge, got %+v", out)
	}
}

func TestBuild_Warnings(t *testing.T) {
	pages := makePages(3)
	annots := map[int][]story.LinkAnnotation{
		2: {{Destination: "nowhere"}, {Destination: "p9"}, {Destination: ""}},
	}
	g, err := NewBuilder(nil).Build(pages, annots, destTable(9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %+v", len(g.Warnings), g.Warnings)
	}
	tests := []struct {
		kind story.WarningKind
		dest string
	}{
		{story.WarnUnresolvedDestination, "nowhere"},
		{story.WarnMissingTargetPage, "p9"},
		{story.WarnUnresolvedDestination, ""},
	}
	for i, tc := range tests {
		w := g.Warnings[i]
		if w.Kind != tc.kind || w.Destination != tc.dest || w.Page != 2 {
			t.Errorf("warning %d: expected %s/%q on page 2, got %+v", i, tc.kind, tc.dest, w)
		}
	}
	if g.Warnings[1].Target != 9 {
		t.Errorf("expected missing target 9, got %d", g.Warnings[1].Target)
	}
	if out := g.Outbound(2); len(out) != 1 || out[0].Kind != story.EdgeContinues {
		t.Errorf("expected fallback Continues edge, got %+v", out)
	}
}

func TestBuild_SelfLinkAndBackLink(t *testing.T) {
	pages := makePages(4)
	annots := map[int][]story.LinkAnnotation{
		3: {{Destination: "p1"}, {Destination: "p3"}, {Destination: "p1"}},
	}
	g, err := NewBuilder(nil).Build(pages, annots, destTable(1, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := g.Outbound(3)
	if len(out) != 2 {
		t.Fatalf("expected 2 edges, got %+v", out)
	}
	if out[0].To != 1 || out[1].To != 3 {
		t.Errorf("expected targets [1 3] in document order, got [%d %d]", out[0].To, out[1].To)
	}
}

func TestBuild_StructuralInvariant(t *testing.T) {
	tests := []struct {
		name   string
		pages  []story.PageRecord
		annots map[int][]story.LinkAnnotation
	}{
		{
			name:  "duplicate page number",
			pages: []story.PageRecord{{PDFPageNumber: 1}, {PDFPageNumber: 1}},
		},
		{
			name:  "non-positive page number",
			pages: []story.PageRecord{{PDFPageNumber: 0}},
		},
		{
			name:   "annotations for unknown page",
			pages:  makePages(2),
			annots: map[int][]story.LinkAnnotation{7: {{Destination: "p1"}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder(nil).Build(tc.pages, tc.annots, destTable(1))
			if !errors.Is(err, ErrStructuralInvariant) {
				t.Errorf("expected ErrStructuralInvariant, got %v", err)
			}
		})
	}
}

func TestBuild_UnsortedInput(t *testing.T) {
	pages := makePages(3)
	pages[0], pages[2] = pages[2], pages[0]
	g, err := NewBuilder(nil).Build(pages, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Pages[0].PDFPageNumber != 1 || g.Edges[0].From != 1 || g.Edges[0].To != 2 {
		t.Errorf("expected pages processed in page order, got %+v", g.Edges)
	}
}
