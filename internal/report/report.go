// Package report renders a human-readable summary of a stored story graph
// as Markdown, and as HTML through goldmark.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/storygraph/internal/graphstore"
	"github.com/dgallion1/storygraph/internal/story"
)

// Summary holds the counts shown at the top of a report.
type Summary struct {
	Pages     int               `json:"pages"`
	Edges     int               `json:"edges"`
	Choices   int               `json:"choices"`
	Continues int               `json:"continues"`
	Warnings  int               `json:"warnings"`
	Plain     int               `json:"plain"`
	Tags      map[story.Tag]int `json:"tags"`
	Sinks     []int             `json:"sinks"`
}

// Summarize counts pages per tag, edges per kind and the pages with no
// outbound edge.
func Summarize(g *story.Graph) Summary {
	s := Summary{
		Pages:    len(g.Pages),
		Edges:    len(g.Edges),
		Warnings: len(g.Warnings),
		Tags:     make(map[story.Tag]int),
		Sinks:    []int{},
	}
	out := make(map[int]bool, len(g.Edges))
	for _, e := range g.Edges {
		out[e.From] = true
		switch e.Kind {
		case story.EdgeChoice:
			s.Choices++
		case story.EdgeContinues:
			s.Continues++
		}
	}
	for _, p := range g.Pages {
		if len(p.Tags) == 0 {
			s.Plain++
		}
		for t := range p.Tags {
			s.Tags[t]++
		}
		if !out[p.PDFPageNumber] {
			s.Sinks = append(s.Sinks, p.PDFPageNumber)
		}
	}
	return s
}

// Markdown renders the report for one graph.
func Markdown(meta graphstore.GraphMeta, g *story.Graph) string {
	s := Summarize(g)
	var b strings.Builder

	title := meta.Title
	if title == "" {
		title = meta.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Graph: `%s`\n", meta.ID)
	if meta.SourceName != "" {
		fmt.Fprintf(&b, "- Source: %s\n", meta.SourceName)
	}
	if meta.ContentHash != "" {
		fmt.Fprintf(&b, "- Content hash: `%s`\n", meta.ContentHash)
	}
	fmt.Fprintf(&b, "- Pages: %d\n", s.Pages)
	fmt.Fprintf(&b, "- Edges: %d (%d choices, %d continues)\n", s.Edges, s.Choices, s.Continues)
	fmt.Fprintf(&b, "- Warnings: %d\n\n", s.Warnings)

	b.WriteString("## Pages by tag\n\n| Tag | Pages |\n| --- | ---: |\n")
	for _, t := range story.AllTags {
		fmt.Fprintf(&b, "| %s | %d |\n", t, s.Tags[t])
	}
	fmt.Fprintf(&b, "| (plain) | %d |\n\n", s.Plain)

	b.WriteString("## Sinks\n\n")
	if len(s.Sinks) == 0 {
		b.WriteString("Every page has an outbound edge.\n\n")
	}
	for _, n := range s.Sinks {
		p, _ := g.Page(n)
		fmt.Fprintf(&b, "- page %d%s%s\n", n, labelSuffix(p.Label), tagSuffix(p.Tags))
	}
	if len(s.Sinks) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Choices\n\n")
	if s.Choices == 0 {
		b.WriteString("No choice links.\n\n")
	} else {
		b.WriteString("| From | To | Choice text | Target words |\n| ---: | ---: | --- | ---: |\n")
		for _, e := range g.Edges {
			if e.Kind != story.EdgeChoice {
				continue
			}
			fmt.Fprintf(&b, "| %d | %d | %s | %d |\n", e.From, e.To, cell(e.ChoiceText), e.WordCount)
		}
		b.WriteString("\n")
	}

	if len(g.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range g.Warnings {
			fmt.Fprintf(&b, "- page %d, %s", w.Page, w.Kind)
			if w.Destination != "" {
				fmt.Fprintf(&b, " `%s`", strings.ReplaceAll(w.Destination, "`", "'"))
			}
			if w.Target != 0 {
				fmt.Fprintf(&b, " (page %d)", w.Target)
			}
			fmt.Fprintf(&b, ": %s\n", w.Message)
		}
	}
	return b.String()
}

// HTML renders the Markdown report with goldmark, tables enabled.
func HTML(meta graphstore.GraphMeta, g *story.Graph) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(meta, g)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func labelSuffix(label string) string {
	if label == "" {
		return ""
	}
	return fmt.Sprintf(" (label %s)", label)
}

func tagSuffix(tags story.TagSet) string {
	if len(tags) == 0 {
		return ""
	}
	return ", " + strings.Join(tags.Strings(), ", ")
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
