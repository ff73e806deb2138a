// Package classify tags a page with its structural roles.
package classify

import (
	"regexp"
	"strings"

	"github.com/dgallion1/storygraph/internal/render"
	"github.com/dgallion1/storygraph/internal/story"
)

// DefaultSubBookPrefix marks pages of the embedded sub-narrative.
const DefaultSubBookPrefix = "G"

var endPattern = regexp.MustCompile(`^THE END(!!)?$`)

// Classifier assigns tags from a page's label and grouped render result.
type Classifier struct {
	// SubBookPrefix is matched against the start of the label. Empty
	// disables SubBook tagging.
	SubBookPrefix string
}

// New returns a Classifier with the given sub-book prefix.
func New(subBookPrefix string) Classifier {
	return Classifier{SubBookPrefix: subBookPrefix}
}

// Classify never fails; the returned set may be empty.
func (c Classifier) Classify(label string, blocks []render.TextBlock, imageCount int) story.TagSet {
	tags := story.NewTagSet()

	if c.SubBookPrefix != "" && strings.HasPrefix(label, c.SubBookPrefix) {
		tags.Add(story.TagSubBook)
	}
	if !hasDigit(label) {
		tags.Add(story.TagIgnore)
	}
	if imageCount > 0 && (len(blocks) == 0 || (len(blocks) == 1 && blocks[0].Text == label)) {
		tags.Add(story.TagImagePage)
	}
	for _, b := range blocks {
		if endPattern.MatchString(strings.TrimSpace(b.Text)) {
			tags.Add(story.TagEndPage)
			break
		}
	}
	return tags
}

// ClassifyResult is Classify over a grouped render result.
func (c Classifier) ClassifyResult(label string, res render.Result) story.TagSet {
	return c.Classify(label, res.Blocks, res.ImageCount)
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
