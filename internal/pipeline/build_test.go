package pipeline

import (
	"context"
	"reflect"
	"testing"

	"github.com/dgallion1/storygraph/internal/classify"
	"github.com/dgallion1/storygraph/internal/story"
)

const caveStory = `## 1 {#p1}

You wake in a cave. [Go left](#p2) or [go right](#p3).

## 2 {#p2}

A long tunnel.

## 3 {#p3}

![bats](bats.png)

## 4 {#p4}

**THE END**

## G1 {#g1}

Sub-book start. [Begin](#p2)
[Lost](#nowhere)
`

func buildCave(t *testing.T, opts BuildOptions) *story.Graph {
	t.Helper()
	doc, err := OpenDocument([]byte(caveStory), "cave.md")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer doc.Close()
	g, err := BuildDocument(context.Background(), doc, opts, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestBuildDocument_EndToEnd(t *testing.T) {
	var phases []JobStatus
	var lastDone, lastTotal int
	g := buildCave(t, BuildOptions{
		SubBookPrefix: classify.DefaultSubBookPrefix,
		OnPhase:       func(s JobStatus) { phases = append(phases, s) },
		OnPage:        func(done, total int) { lastDone, lastTotal = done, total },
	})

	wantPhases := []JobStatus{StatusLabeling, StatusClassifying, StatusLinking}
	if !reflect.DeepEqual(phases, wantPhases) {
		t.Errorf("expected phases %v, got %v", wantPhases, phases)
	}
	if lastDone != 5 || lastTotal != 5 {
		t.Errorf("expected 5/5 pages reported, got %d/%d", lastDone, lastTotal)
	}

	tags := map[int][]story.Tag{}
	for _, p := range g.Pages {
		tags[p.PDFPageNumber] = p.Tags.Sorted()
	}
	wantTags := map[int][]story.Tag{
		1: {},
		2: {},
		3: {story.TagImagePage},
		4: {story.TagEndPage},
		5: {story.TagSubBook},
	}
	if !reflect.DeepEqual(tags, wantTags) {
		t.Errorf("expected tags %v, got %v", wantTags, tags)
	}

	type edge struct {
		from, to int
		kind     story.EdgeKind
		text     string
	}
	var edges []edge
	for _, e := range g.Edges {
		edges = append(edges, edge{e.From, e.To, e.Kind, e.ChoiceText})
	}
	wantEdges := []edge{
		{1, 2, story.EdgeChoice, "Go left"},
		{1, 3, story.EdgeChoice, "go right"},
		{2, 3, story.EdgeContinues, ""},
		{3, 4, story.EdgeContinues, ""},
		{5, 2, story.EdgeChoice, "Begin"},
	}
	if !reflect.DeepEqual(edges, wantEdges) {
		t.Errorf("expected edges %v, got %v", wantEdges, edges)
	}
	if g.Edges[0].WordCount != 4 {
		t.Errorf("expected edge to carry target word count 4, got %d", g.Edges[0].WordCount)
	}

	if len(g.Warnings) != 1 || g.Warnings[0].Kind != story.WarnUnresolvedDestination || g.Warnings[0].Page != 5 {
		t.Errorf("expected one unresolved destination warning on page 5, got %+v", g.Warnings)
	}
}

func TestBuildDocument_SubBookPrefixDisabled(t *testing.T) {
	g := buildCave(t, BuildOptions{SubBookPrefix: ""})
	if n := g.CountTag(story.TagSubBook); n != 0 {
		t.Errorf("expected no sub-book pages with an empty prefix, got %d", n)
	}
}

func TestBuildDocument_Cancelled(t *testing.T) {
	doc, err := OpenDocument([]byte(caveStory), "cave.md")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildDocument(ctx, doc, BuildOptions{}, nil); err == nil {
		t.Error("expected cancelled context to abort the build")
	}
}

func TestInspectPage(t *testing.T) {
	doc, err := OpenDocument([]byte(caveStory), "cave.md")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rep := InspectPage(doc, 0, "1", classify.New("G"))
	if rep.Number != 1 || len(rep.Blocks) != 2 || rep.ImageCount != 0 {
		t.Errorf("expected page 1 with heading and paragraph blocks, got %+v", rep)
	}
	if len(rep.Links) != 2 || rep.Links[0].Destination != "p2" {
		t.Errorf("expected 2 links starting at p2, got %+v", rep.Links)
	}
	if len(rep.Errors) != 0 {
		t.Errorf("expected no errors, got %v", rep.Errors)
	}

	rep = InspectPage(doc, 99, "x", classify.New("G"))
	if len(rep.Errors) != 2 {
		t.Errorf("expected content and annotation errors for a missing page, got %v", rep.Errors)
	}
	if !reflect.DeepEqual(rep.Tags, []story.Tag{story.TagIgnore}) {
		t.Errorf("expected missing page to classify as Ignore only, got %v", rep.Tags)
	}
}

func TestPageLabels_Sources(t *testing.T) {
	doc, err := OpenDocument([]byte(caveStory), "cave.md")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := []string{"1", "2", "3", "4", "G1"}
	if got := PageLabels(doc, nil); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOpenDocument_Unsupported(t *testing.T) {
	if _, err := OpenDocument([]byte("x"), "story.docx"); err == nil {
		t.Error("expected unsupported extension error")
	}
}
