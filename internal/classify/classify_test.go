package classify

import (
	"reflect"
	"testing"

	"github.com/dgallion1/storygraph/internal/render"
	"github.com/dgallion1/storygraph/internal/story"
)

func blocks(texts ...string) []render.TextBlock {
	out := make([]render.TextBlock, len(texts))
	for i, t := range texts {
		out[i] = render.TextBlock{Font: "F", SpaceWidth: 2, Text: t}
	}
	return out
}

func TestClassify(t *testing.T) {
	c := New(DefaultSubBookPrefix)
	tests := []struct {
		name   string
		label  string
		blocks []render.TextBlock
		images int
		want   []story.Tag
	}{
		{name: "plain page", label: "12", blocks: blocks("You enter the hall."), want: []story.Tag{}},
		{name: "roman front matter", label: "iv", blocks: blocks("Preface"), want: []story.Tag{story.TagIgnore}},
		{name: "empty label", label: "", want: []story.Tag{story.TagIgnore}},
		{name: "sub book", label: "G12", blocks: blocks("text"), want: []story.Tag{story.TagSubBook}},
		{name: "sub book without digits", label: "Gx", want: []story.Tag{story.TagSubBook, story.TagIgnore}},
		{name: "image without text", label: "7", images: 1, want: []story.Tag{story.TagImagePage}},
		{name: "image with page stamp", label: "7", blocks: blocks("7"), images: 2, want: []story.Tag{story.TagImagePage}},
		{name: "image with caption", label: "7", blocks: blocks("A dragon"), images: 1, want: []story.Tag{}},
		{name: "image with stamp and caption", label: "7", blocks: blocks("7", "A dragon"), images: 1, want: []story.Tag{}},
		{name: "text without image", label: "7", want: []story.Tag{}},
		{name: "the end", label: "30", blocks: blocks("You win.", "  THE END \n"), want: []story.Tag{story.TagEndPage}},
		{name: "the end with bangs", label: "30", blocks: blocks("THE END!!"), want: []story.Tag{story.TagEndPage}},
		{name: "the end single bang", label: "30", blocks: blocks("THE END!"), want: []story.Tag{}},
		{name: "the end lower case", label: "30", blocks: blocks("The End"), want: []story.Tag{}},
		{name: "the end inside text", label: "30", blocks: blocks("This is THE END"), want: []story.Tag{}},
		{
			name:   "image and end page together",
			label:  "G3",
			blocks: blocks("THE END"),
			images: 1,
			want:   []story.Tag{story.TagEndPage, story.TagSubBook},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.label, tc.blocks, tc.images).Sorted()
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClassify_EmptyPrefixDisablesSubBook(t *testing.T) {
	tags := New("").Classify("G12", nil, 0)
	if tags.Has(story.TagSubBook) {
		t.Error("expected no SubBook tag with empty prefix")
	}
}

func TestClassify_CustomPrefix(t *testing.T) {
	tags := New("App-").Classify("App-3", nil, 0)
	if !tags.Has(story.TagSubBook) {
		t.Error("expected SubBook tag for custom prefix")
	}
}

func TestClassifyResult(t *testing.T) {
	res := render.Group([]render.Event{render.Image(), render.Text("5", "Num", 3)})
	tags := New(DefaultSubBookPrefix).ClassifyResult("5", res)
	if !tags.Has(story.TagImagePage) {
		t.Errorf("expected ImagePage, got %v", tags.Sorted())
	}
}
