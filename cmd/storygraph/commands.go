package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dgallion1/storygraph/internal/classify"
	"github.com/dgallion1/storygraph/internal/config"
	"github.com/dgallion1/storygraph/internal/graphstore"
	"github.com/dgallion1/storygraph/internal/parser"
	"github.com/dgallion1/storygraph/internal/pipeline"
	"github.com/dgallion1/storygraph/internal/report"
	"github.com/dgallion1/storygraph/internal/story"
)

// BuildCmd builds and persists a graph.
type BuildCmd struct {
	File          string  `arg:"" type:"existingfile" help:"Document to build (.pdf, .md, .html)"`
	Title         string  `name:"title" short:"t" help:"Graph title (default: file name)"`
	GraphID       string  `name:"graph-id" help:"Graph ID (default: derived from title and content hash)"`
	SubBookPrefix *string `name:"subbook-prefix" env:"SUBBOOK_PREFIX" help:"Label prefix marking sub-book starts; empty disables (default: G)"`
	Force         bool    `name:"force" short:"f" help:"Rebuild even if the same document is already stored"`
}

func (c *BuildCmd) Run(g *Globals) error {
	ctx := context.Background()
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	orch := pipeline.NewOrchestrator(config.Config{SubBookPrefix: classify.DefaultSubBookPrefix}, store, g.logger())
	job := orch.NewJob(filepath.Base(c.File), c.Title, c.GraphID, c.SubBookPrefix, c.Force, data)
	snap := orch.Run(ctx, job)

	switch snap.Status {
	case pipeline.StatusDupSkipped:
		fmt.Fprintf(g.out, "already stored as %s (use --force to rebuild)\n", snap.DuplicateOf)
		return nil
	case pipeline.StatusCompleted:
	default:
		return fmt.Errorf("build failed during %s: %s", snap.Phase, strings.Join(snap.Progress.Errors, "; "))
	}

	fmt.Fprintf(g.out, "graph %s: %d pages, %d edges, %d warnings\n",
		snap.GraphID, snap.Progress.TotalPages, snap.Progress.Edges, snap.Progress.Warnings)
	for _, e := range snap.Progress.Errors {
		fmt.Fprintf(g.out, "  warning: %s\n", e)
	}
	return nil
}

// LabelsCmd prints one label per page.
type LabelsCmd struct {
	File string `arg:"" type:"existingfile" help:"Document to read"`
}

func (c *LabelsCmd) Run(g *Globals) error {
	doc, err := openFile(c.File)
	if err != nil {
		return err
	}
	defer doc.Close()
	for i, label := range pipeline.PageLabels(doc, g.logger()) {
		fmt.Fprintf(g.out, "%d\t%s\n", i+1, label)
	}
	return nil
}

// InspectCmd prints the first-pass view of one page as JSON.
type InspectCmd struct {
	File          string `arg:"" type:"existingfile" help:"Document to read"`
	Page          int    `name:"page" short:"p" required:"" help:"1-based page number"`
	SubBookPrefix string `name:"subbook-prefix" env:"SUBBOOK_PREFIX" default:"G" help:"Label prefix marking sub-book starts"`
}

func (c *InspectCmd) Run(g *Globals) error {
	doc, err := openFile(c.File)
	if err != nil {
		return err
	}
	defer doc.Close()
	labels := pipeline.PageLabels(doc, g.logger())
	if c.Page < 1 || c.Page > len(labels) {
		return fmt.Errorf("page %d out of range (document has %d pages)", c.Page, len(labels))
	}
	rep := pipeline.InspectPage(doc, c.Page-1, labels[c.Page-1], classify.New(c.SubBookPrefix))
	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PathsCmd queries paths between tagged pages.
type PathsCmd struct {
	GraphID  string   `arg:"" name:"graph-id" help:"Stored graph ID"`
	From     []string `name:"from" default:"SubBook" help:"Tags the start page must carry"`
	To       []string `name:"to" default:"SubBook,EndPage" help:"Tags the end page must carry"`
	MaxDepth int      `name:"max-depth" env:"MAX_PATH_DEPTH" default:"20" help:"Maximum path length in edges"`
	Limit    int      `name:"limit" env:"MAX_PATHS" default:"100" help:"Maximum number of paths"`
}

func (c *PathsCmd) Run(g *Globals) error {
	from, err := parseTags(c.From)
	if err != nil {
		return err
	}
	to, err := parseTags(c.To)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	paths, err := store.Paths(ctx, c.GraphID, graphstore.PathQuery{
		FromTags: from,
		ToTags:   to,
		MaxDepth: c.MaxDepth,
		Limit:    c.Limit,
	})
	if err != nil {
		return notFound(c.GraphID, err)
	}
	for _, p := range paths {
		parts := make([]string, len(p))
		for i, n := range p {
			parts[i] = strconv.Itoa(n)
		}
		fmt.Fprintln(g.out, strings.Join(parts, " -> "))
	}
	fmt.Fprintf(g.out, "%d paths\n", len(paths))
	return nil
}

// ReportCmd prints a graph report.
type ReportCmd struct {
	GraphID string `arg:"" name:"graph-id" help:"Stored graph ID"`
	HTML    bool   `name:"html" help:"Render HTML instead of Markdown"`
}

func (c *ReportCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	meta, err := store.Get(ctx, c.GraphID)
	if err != nil {
		return notFound(c.GraphID, err)
	}
	graph, err := store.Load(ctx, c.GraphID)
	if err != nil {
		return notFound(c.GraphID, err)
	}
	if !c.HTML {
		_, err = fmt.Fprint(g.out, report.Markdown(meta, graph))
		return err
	}
	html, err := report.HTML(meta, graph)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(g.out, html)
	return err
}

// ListCmd lists stored graphs.
type ListCmd struct{}

func (c *ListCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	metas, err := store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPAGES\tEDGES\tWARNINGS\tCREATED")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			m.ID, m.Title, m.PageCount, m.EdgeCount, m.WarningCount, m.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// DeleteCmd deletes a stored graph.
type DeleteCmd struct {
	GraphID string `arg:"" name:"graph-id" help:"Stored graph ID"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	ctx := context.Background()
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(ctx, c.GraphID); err != nil {
		return notFound(c.GraphID, err)
	}
	fmt.Fprintf(g.out, "deleted %s\n", c.GraphID)
	return nil
}

func openFile(path string) (parser.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pipeline.OpenDocument(data, filepath.Base(path))
}

func parseTags(names []string) ([]story.Tag, error) {
	var tags []story.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, ok := story.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("unknown tag %q", name)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func notFound(id string, err error) error {
	if errors.Is(err, graphstore.ErrNotFound) {
		return fmt.Errorf("graph %s not found", id)
	}
	return err
}
