package graphstore

import (
	"context"
	"fmt"

	"github.com/dgallion1/storygraph/internal/story"
)

// Persist writes g under meta as one unit: nodes first, then edges in
// creation order, then warnings. Any failure rolls the build back. The
// counts in the returned meta are taken from g.
func Persist(ctx context.Context, s Store, meta GraphMeta, g *story.Graph) (GraphMeta, error) {
	meta.PageCount = len(g.Pages)
	meta.EdgeCount = len(g.Edges)
	meta.WarningCount = len(g.Warnings)

	w, err := s.Begin(ctx, meta)
	if err != nil {
		return meta, fmt.Errorf("begin graph %s: %w", meta.ID, err)
	}
	if err := writeGraph(ctx, w, g); err != nil {
		_ = w.Rollback(context.WithoutCancel(ctx))
		return meta, err
	}
	if err := w.Commit(ctx); err != nil {
		_ = w.Rollback(context.WithoutCancel(ctx))
		return meta, fmt.Errorf("commit graph %s: %w", meta.ID, err)
	}
	return meta, nil
}

func writeGraph(ctx context.Context, w Writer, g *story.Graph) error {
	ids := make(map[int]NodeID, len(g.Pages))
	for _, p := range g.Pages {
		id, err := w.CreateNode(ctx, p.Tags.Sorted(), NodeProps{
			PDFPageNumber: p.PDFPageNumber,
			Label:         p.Label,
			WordCount:     p.WordCount,
		})
		if err != nil {
			return fmt.Errorf("create node for page %d: %w", p.PDFPageNumber, err)
		}
		ids[p.PDFPageNumber] = id
	}
	for _, e := range g.Edges {
		from, ok := ids[e.From]
		if !ok {
			return fmt.Errorf("edge %d->%d: no node for page %d", e.From, e.To, e.From)
		}
		to, ok := ids[e.To]
		if !ok {
			return fmt.Errorf("edge %d->%d: no node for page %d", e.From, e.To, e.To)
		}
		props := EdgeProps{ChoiceText: e.ChoiceText, WordCount: e.WordCount}
		if err := w.CreateEdge(ctx, from, to, e.Kind, props); err != nil {
			return fmt.Errorf("create edge %d->%d: %w", e.From, e.To, err)
		}
	}
	for _, warn := range g.Warnings {
		if err := w.AddWarning(ctx, warn); err != nil {
			return fmt.Errorf("add warning: %w", err)
		}
	}
	return nil
}
