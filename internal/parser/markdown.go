package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// PageHeadingLevel is the heading level that starts a new page.
const PageHeadingLevel = 2

// MarkdownParser handles Markdown files using goldmark. Every level-2
// heading opens a page; heading IDs are the named destinations and
// [text](#id) links are the page's link annotations.
type MarkdownParser struct{}

func (p *MarkdownParser) Open(r io.Reader, filename string) (Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	md := goldmark.New(goldmark.WithParserOptions(
		gmparser.WithAttribute(),
		gmparser.WithAutoHeadingID(),
	))
	root := md.Parser().Parse(text.NewReader(src))

	b := newFlowBuilder()
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == PageHeadingLevel {
			b.startPage(strings.TrimSpace(inlineText(h, src)))
		}
		b.walkMarkdown(n, src)
	}
	return b.document(), nil
}

func (b *flowBuilder) walkMarkdown(n ast.Node, src []byte) {
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := node.(type) {
		case *ast.Heading:
			b.boundary()
			if entering {
				if id, ok := v.AttributeString("id"); ok {
					if idb, ok := id.([]byte); ok {
						b.destination(string(idb))
					}
				}
				b.pushFont(fontHeading)
			} else {
				b.popFont()
			}
		case *ast.Paragraph, *ast.TextBlock, *ast.ListItem, *ast.Blockquote, *ast.ThematicBreak:
			b.boundary()
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				b.boundary()
				lines := v.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.textAs(fontCode, string(bytes.TrimRight(seg.Value(src), "\n"))+" ")
				}
				b.boundary()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Emphasis:
			if entering {
				if v.Level >= 2 {
					b.pushFont(fontStrong)
				} else {
					b.pushFont(fontEmphasis)
				}
			} else {
				b.popFont()
			}
		case *ast.CodeSpan:
			if entering {
				b.textAs(fontCode, inlineText(v, src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				s := string(v.Value(src))
				if v.SoftLineBreak() || v.HardLineBreak() {
					s += " "
				}
				b.text(s)
			}
		case *ast.String:
			if entering {
				b.text(string(v.Value))
			}
		case *ast.Image:
			if entering {
				b.image()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if entering {
				b.link(string(v.Destination), inlineText(v, src))
			}
		case *ast.AutoLink, *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

// inlineText concatenates the text of n's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			buf.Write(v.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
