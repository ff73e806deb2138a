package render

import (
	"reflect"
	"testing"
)

func blockTexts(r Result) []string {
	out := make([]string, len(r.Blocks))
	for i, b := range r.Blocks {
		out[i] = b.Text
	}
	return out
}

func TestGroup_BoundaryForcesNewBlock(t *testing.T) {
	events := []Event{
		Text("Choice A", "fontX", 10),
		RunBoundary(),
		Text("Choice B", "fontX", 10),
	}
	got := blockTexts(Group(events))
	want := []string{"Choice A", "Choice B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGroup_Rules(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   []string
		images int
	}{
		{
			name:   "same font and width merge",
			events: []Event{Text("You walk ", "F1", 2.5), Text("into the cave.", "F1", 2.9)},
			want:   []string{"You walk into the cave."},
		},
		{
			name:   "font change splits",
			events: []Event{Text("Title", "Bold", 3), Text("Body", "Regular", 3)},
			want:   []string{"Title", "Body"},
		},
		{
			name:   "truncated width change splits",
			events: []Event{Text("a", "F1", 2.9), Text("b", "F1", 3.0)},
			want:   []string{"a", "b"},
		},
		{
			name:   "negative widths truncate toward zero",
			events: []Event{Text("a", "F1", -0.5), Text("b", "F1", 0.7)},
			want:   []string{"ab"},
		},
		{
			name:   "images do not split text",
			events: []Event{Text("a", "F1", 2), Image(), Text("b", "F1", 2), Image()},
			want:   []string{"ab"},
			images: 2,
		},
		{
			name:   "image only page",
			events: []Event{RunBoundary(), Image(), RunBoundary()},
			want:   []string{},
			images: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Group(tc.events)
			if got := blockTexts(res); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected blocks %v, got %v", tc.want, got)
			}
			if res.ImageCount != tc.images {
				t.Errorf("expected %d images, got %d", tc.images, res.ImageCount)
			}
		})
	}
}

func TestGroup_Deterministic(t *testing.T) {
	events := []Event{
		Text("1", "Num", 4), RunBoundary(), Text("The dragon ", "Body", 2.4),
		Text("sleeps.", "Body", 2.1), Text("Turn to 12", "Italic", 2.4), Image(),
		RunBoundary(), Text("THE END", "Body", 2.4),
	}
	a := Group(events)
	b := Group(events)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
	if len(a.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(a.Blocks))
	}
	if a.Blocks[1].Font != "Body" || a.Blocks[1].SpaceWidth != 2 {
		t.Errorf("expected key (Body, 2), got (%s, %d)", a.Blocks[1].Font, a.Blocks[1].SpaceWidth)
	}
}

func TestGrouper_ResultIdempotent(t *testing.T) {
	var g Grouper
	g.BeginRun()
	g.OnText("Hello", "F", 1)
	g.EndRun()
	first := g.Result()
	second := g.Result()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected idempotent result, got %+v then %+v", first, second)
	}
	first.Blocks[0].Text = "mutated"
	if g.Result().Blocks[0].Text != "Hello" {
		t.Error("expected result to be a copy")
	}
}

func TestRegionText(t *testing.T) {
	events := []Event{
		PositionedText("You flee.", "Body", 2.5, 72, 500, 130),
		RunBoundary(),
		PositionedText("Turn to ", "Body", 2.5, 72, 200, 110),
		PositionedText("page 25", "Body", 2.5, 110, 200, 150),
		PositionedText("Fight the troll", "Body", 2.5, 72, 180, 160),
	}
	got := RegionText(events, Rect{LLX: 150, LLY: 210, URX: 70, URY: 196})
	if got != "Turn to page 25" {
		t.Errorf("expected %q, got %q", "Turn to page 25", got)
	}
}

func TestCleanText(t *testing.T) {
	got := CleanText("  Cafe\u0301 \n\t au  lait ")
	if got != "Caf\u00e9 au lait" {
		t.Errorf("expected NFC collapsed text, got %q", got)
	}
}

func TestWordCount(t *testing.T) {
	events := []Event{Text("one two", "F", 1), Image(), RunBoundary(), Text(" three ", "F", 1)}
	if n := WordCount(events); n != 3 {
		t.Errorf("expected 3 words, got %d", n)
	}
}

func TestGrouper_AppendsToNewestBlock(t *testing.T) {
	var g Grouper
	g.OnText("Turn ", "F", 2)
	g.OnText("left", "F", 2)
	mid := g.Result()
	g.EndRun()
	g.OnText("Turn ", "F", 2)
	g.OnText("right", "F", 2)

	want := []TextBlock{
		{Font: "F", SpaceWidth: 2, Text: "Turn left"},
		{Font: "F", SpaceWidth: 2, Text: "Turn right"},
	}
	if got := g.Result().Blocks; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if len(mid.Blocks) != 1 || mid.Blocks[0].Text != "Turn left" {
		t.Errorf("expected earlier result to be unaffected, got %+v", mid.Blocks)
	}
}
