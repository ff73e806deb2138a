package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. Each top-level <section> is a page; a
// document without sections is a single page. Element ids are the named
// destinations and <a href="#id"> links are the link annotations.
type HTMLParser struct{}

func (p *HTMLParser) Open(r io.Reader, filename string) (Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	b := newFlowBuilder()
	sections := topLevelSections(root)
	if len(sections) == 0 {
		b.startPage(sectionLabel(root))
		b.walkHTML(root)
		return b.document(), nil
	}
	for _, s := range sections {
		b.startPage(sectionLabel(s))
		b.walkHTML(s)
	}
	return b.document(), nil
}

func (b *flowBuilder) walkHTML(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			b.text(collapseSpace(n.Data))
		}
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.walkHTML(c)
		}
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Template, atom.Noscript:
		return
	case atom.Img:
		b.image()
		return
	case atom.Br:
		b.text(" ")
		return
	}

	if id := attr(n, "id"); id != "" {
		b.destination(id)
	}
	if n.DataAtom == atom.A {
		if name := attr(n, "name"); name != "" {
			b.destination(name)
		}
		if href, ok := hasAttr(n, "href"); ok {
			b.link(href, textContent(n))
		}
	}

	block := isBlock(n.DataAtom)
	if block {
		b.boundary()
	}
	font := htmlFont(n.DataAtom)
	if font != "" {
		b.pushFont(font)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walkHTML(c)
	}
	if font != "" {
		b.popFont()
	}
	if block {
		b.boundary()
	}
}

// topLevelSections returns <section> elements not nested in another section.
func topLevelSections(n *html.Node) []*html.Node {
	var out []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Section {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return out
}

// sectionLabel is the data-label attribute, else the first heading's text.
func sectionLabel(n *html.Node) string {
	if l, ok := hasAttr(n, "data-label"); ok {
		return strings.TrimSpace(l)
	}
	if h := firstHeading(n); h != nil {
		return textContent(h)
	}
	return ""
}

func firstHeading(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && headingLevel(n.DataAtom) > 0 {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := firstHeading(c); h != nil {
			return h
		}
	}
	return nil
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func isBlock(a atom.Atom) bool {
	if headingLevel(a) > 0 {
		return true
	}
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Blockquote, atom.Pre,
		atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tr, atom.Td, atom.Th,
		atom.Header, atom.Footer, atom.Nav, atom.Aside, atom.Figure, atom.Figcaption, atom.Hr:
		return true
	}
	return false
}

// htmlFont maps a styling element to a font identity. Elements that do not
// change the style return "".
func htmlFont(a atom.Atom) string {
	if headingLevel(a) > 0 {
		return fontHeading
	}
	switch a {
	case atom.Em, atom.I, atom.Cite:
		return fontEmphasis
	case atom.Strong, atom.B:
		return fontStrong
	case atom.Code, atom.Pre, atom.Tt, atom.Kbd, atom.Samp:
		return fontCode
	}
	return ""
}

func attr(n *html.Node, key string) string {
	v, _ := hasAttr(n, key)
	return v
}

func hasAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func collapseSpace(s string) string {
	lead := len(s) > 0 && isSpaceByte(s[0])
	trail := len(s) > 0 && isSpaceByte(s[len(s)-1])
	out := strings.Join(strings.Fields(s), " ")
	if lead {
		out = " " + out
	}
	if trail {
		out += " "
	}
	return out
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
