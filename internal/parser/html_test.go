package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/storygraph/internal/render"
)

const htmlStory = `<!DOCTYPE html>
<html><head><title>Cave</title><style>p { color: red }</style></head>
<body>
<section id="intro" data-label="Preface">
  <p>How to read this book.</p>
</section>
<section id="p1">
  <h2>1</h2>
  <p>You stand at the mouth of a cave.</p>
  <p><a href="#p2">Enter the cave</a> or <a href="#p3">run away</a>.</p>
  <p><a href="#p2">Enter</a> <a href="https://example.com">(web)</a></p>
</section>
<section id="p2">
  <h2>2</h2>
  <img src="bats.png" alt="bats">
</section>
<section id="p3">
  <h2>3</h2>
  <p><a name="escape"></a>You escape.</p>
  <p><strong>THE END</strong></p>
</section>
</body></html>`

func openHTML(t *testing.T, src string) Document {
	t.Helper()
	doc, err := (&HTMLParser{}).Open(strings.NewReader(src), "story.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

func TestHTMLParser_Sections(t *testing.T) {
	doc := openHTML(t, htmlStory)
	if n := doc.NumberOfPages(); n != 4 {
		t.Fatalf("expected 4 pages, got %d", n)
	}
	labels := doc.(Labeler).PageLabels()
	want := []string{"Preface", "1", "2", "3"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("expected labels %v, got %v", want, labels)
	}
}

func TestHTMLParser_Destinations(t *testing.T) {
	doc := openHTML(t, htmlStory)
	table := DestinationTable(doc)
	want := map[string]int{"intro": 1, "p1": 2, "p2": 3, "p3": 4, "escape": 4}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("expected %v, got %v", want, table)
	}
}

func TestHTMLParser_Links(t *testing.T) {
	doc := openHTML(t, htmlStory)
	annots, err := doc.LinkAnnotations(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, a := range annots {
		got = append(got, a.Destination+"|"+a.Text)
	}
	want := []string{"p2|Enter the cave", "p3|run away", "p2|Enter"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestHTMLParser_RenderEvents(t *testing.T) {
	doc := openHTML(t, htmlStory)

	events, err := doc.RenderEvents(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := render.Group(events)
	if res.ImageCount != 1 || len(res.Blocks) != 1 || res.Blocks[0].Text != "2" {
		t.Errorf("expected image page with heading stamp, got %+v", res)
	}

	events, _ = doc.RenderEvents(3)
	res = render.Group(events)
	last := res.Blocks[len(res.Blocks)-1]
	if last.Text != "THE END" || last.Font != fontStrong {
		t.Errorf("expected strong THE END block, got %+v", last)
	}
}

func TestHTMLParser_NoSections(t *testing.T) {
	doc := openHTML(t, `<html><body><h1>Only page</h1><p id="x">Text</p><style>x{}</style></body></html>`)
	if n := doc.NumberOfPages(); n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
	if labels := doc.(Labeler).PageLabels(); labels[0] != "Only page" {
		t.Errorf("expected heading label, got %q", labels[0])
	}
	events, _ := doc.RenderEvents(0)
	res := render.Group(events)
	if len(res.Blocks) != 2 || res.Blocks[1].Text != "Text" {
		t.Errorf("expected heading and paragraph blocks, got %+v", res.Blocks)
	}
}
