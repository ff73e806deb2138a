package graphstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dgallion1/storygraph/internal/story"
)

// MemoryStore keeps graphs in process memory. A Writer builds into a private
// graph that is swapped in on Commit.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]*memGraph
}

type memGraph struct {
	meta  GraphMeta
	graph story.Graph
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{graphs: make(map[string]*memGraph)}
}

func (s *MemoryStore) Begin(_ context.Context, meta GraphMeta) (Writer, error) {
	if meta.ID == "" {
		return nil, errors.New("graph id is required")
	}
	return &memWriter{
		store: s,
		g:     &memGraph{meta: meta},
		pages: make(map[NodeID]int),
		seen:  make(map[edgeKey]bool),
	}, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (GraphMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return GraphMeta{}, ErrNotFound
	}
	return g.meta, nil
}

func (s *MemoryStore) List(_ context.Context) ([]GraphMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GraphMeta, 0, len(s.graphs))
	for _, g := range s.graphs {
		out = append(out, g.meta)
	}
	sortMetas(out)
	return out, nil
}

func (s *MemoryStore) FindByHash(_ context.Context, hash string) (GraphMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var metas []GraphMeta
	for _, g := range s.graphs {
		if g.meta.ContentHash == hash {
			metas = append(metas, g.meta)
		}
	}
	if len(metas) == 0 {
		return GraphMeta{}, ErrNotFound
	}
	sortMetas(metas)
	return metas[0], nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*story.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGraph(&g.graph), nil
}

func (s *MemoryStore) Paths(ctx context.Context, id string, q PathQuery) ([][]int, error) {
	g, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FindPaths(g, q)
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[id]; !ok {
		return ErrNotFound
	}
	delete(s.graphs, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type edgeKey struct {
	from, to int
	kind     story.EdgeKind
}

type memWriter struct {
	store *MemoryStore
	g     *memGraph
	pages map[NodeID]int
	seen  map[edgeKey]bool
	done  bool
}

func (w *memWriter) CreateNode(_ context.Context, tags []story.Tag, props NodeProps) (NodeID, error) {
	if w.done {
		return "", errors.New("writer is closed")
	}
	id := NodeID(fmt.Sprintf("n%d", len(w.g.graph.Pages)+1))
	w.pages[id] = props.PDFPageNumber
	w.g.graph.Pages = append(w.g.graph.Pages, story.PageRecord{
		PDFPageNumber: props.PDFPageNumber,
		Label:         props.Label,
		Tags:          story.NewTagSet(tags...),
		WordCount:     props.WordCount,
	})
	return id, nil
}

func (w *memWriter) CreateEdge(_ context.Context, from, to NodeID, kind story.EdgeKind, props EdgeProps) error {
	if w.done {
		return errors.New("writer is closed")
	}
	fp, ok := w.pages[from]
	if !ok {
		return fmt.Errorf("create edge: unknown node %s", from)
	}
	tp, ok := w.pages[to]
	if !ok {
		return fmt.Errorf("create edge: unknown node %s", to)
	}
	key := edgeKey{fp, tp, kind}
	if w.seen[key] {
		return nil
	}
	w.seen[key] = true
	w.g.graph.Edges = append(w.g.graph.Edges, story.Edge{
		From: fp, To: tp, Kind: kind,
		ChoiceText: props.ChoiceText,
		WordCount:  props.WordCount,
	})
	return nil
}

func (w *memWriter) AddWarning(_ context.Context, warn story.Warning) error {
	if w.done {
		return errors.New("writer is closed")
	}
	w.g.graph.Warnings = append(w.g.graph.Warnings, warn)
	return nil
}

func (w *memWriter) Commit(_ context.Context) error {
	if w.done {
		return errors.New("writer is closed")
	}
	w.done = true
	slices.SortStableFunc(w.g.graph.Pages, func(a, b story.PageRecord) int {
		return a.PDFPageNumber - b.PDFPageNumber
	})
	w.store.mu.Lock()
	w.store.graphs[w.g.meta.ID] = w.g
	w.store.mu.Unlock()
	return nil
}

func (w *memWriter) Rollback(_ context.Context) error {
	w.done = true
	return nil
}

func cloneGraph(g *story.Graph) *story.Graph {
	out := &story.Graph{
		Pages:    make([]story.PageRecord, len(g.Pages)),
		Edges:    slices.Clone(g.Edges),
		Warnings: slices.Clone(g.Warnings),
	}
	for i, p := range g.Pages {
		p.Tags = story.NewTagSet(p.Tags.Sorted()...)
		out.Pages[i] = p
	}
	return out
}

// sortMetas orders graphs newest first, then by ID.
func sortMetas(metas []GraphMeta) {
	slices.SortFunc(metas, func(a, b GraphMeta) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
