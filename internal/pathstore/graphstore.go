package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/storygraph/internal/graphstore"
	"github.com/dgallion1/storygraph/internal/story"
)

// RootKey is the key prefix every stored graph lives under.
const RootKey = "storygraph/graphs"

// GraphStore implements graphstore.Store on a pathstore server.
//
// Each build writes its nodes, edges and warnings under a fresh build prefix
// storygraph/graphs/<id>/builds/<build>. The graph's meta key, which names
// the current build, is written last; a graph without a meta key does not
// exist. Commit then removes superseded builds and Rollback removes the
// build prefix.
type GraphStore struct {
	client *Client
	source string
}

func NewGraphStore(client *Client) *GraphStore {
	return &GraphStore{client: client, source: "storygraph"}
}

type metaValue struct {
	graphstore.GraphMeta
	Build string `json:"build"`
}

type nodeValue struct {
	graphstore.NodeProps
	Tags []story.Tag `json:"tags"`
}

type edgeValue struct {
	graphstore.EdgeProps
	From int            `json:"from"`
	To   int            `json:"to"`
	Kind story.EdgeKind `json:"kind"`
}

func graphKey(id string) string { return RootKey + "/" + id }
func metaKey(id string) string { return graphKey(id) + "/meta" }
func buildKey(id, build string) string { return graphKey(id) + "/builds/" + build }
func seqKey(prefix string, n int) string { return fmt.Sprintf("%s/%08d", prefix, n) }
func nodeKey(build string, page int) string { return fmt.Sprintf("%s/nodes/%08d", build, page) }

func (s *GraphStore) Begin(_ context.Context, meta graphstore.GraphMeta) (graphstore.Writer, error) {
	if meta.ID == "" || strings.ContainsAny(meta.ID, "/*?") {
		return nil, fmt.Errorf("invalid graph id %q", meta.ID)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	build := uuid.New().String()
	return &writer{
		store: s,
		meta:  metaValue{GraphMeta: meta, Build: build},
		base:  buildKey(meta.ID, build),
		pages: make(map[graphstore.NodeID]int),
		seen:  make(map[string]bool),
	}, nil
}

func (s *GraphStore) getMeta(ctx context.Context, id string) (metaValue, error) {
	node, err := s.client.GetNode(ctx, metaKey(id))
	if err != nil {
		return metaValue{}, err
	}
	if node == nil {
		return metaValue{}, graphstore.ErrNotFound
	}
	var m metaValue
	if err := json.Unmarshal(node.Value, &m); err != nil {
		return metaValue{}, fmt.Errorf("decode meta of %s: %w", id, err)
	}
	return m, nil
}

func (s *GraphStore) Get(ctx context.Context, id string) (graphstore.GraphMeta, error) {
	m, err := s.getMeta(ctx, id)
	if err != nil {
		return graphstore.GraphMeta{}, err
	}
	return m.GraphMeta, nil
}

func (s *GraphStore) List(ctx context.Context) ([]graphstore.GraphMeta, error) {
	children, err := s.client.ListChildren(ctx, RootKey, 0)
	if err != nil {
		return nil, err
	}
	out := []graphstore.GraphMeta{}
	for _, c := range children {
		rest, ok := strings.CutPrefix(c.Key, RootKey+"/")
		if !ok || strings.Count(rest, "/") != 1 || !strings.HasSuffix(rest, "/meta") {
			continue
		}
		var m metaValue
		if err := json.Unmarshal(c.Value, &m); err != nil {
			return nil, fmt.Errorf("decode meta %s: %w", c.Key, err)
		}
		out = append(out, m.GraphMeta)
	}
	slices.SortFunc(out, func(a, b graphstore.GraphMeta) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *GraphStore) FindByHash(ctx context.Context, hash string) (graphstore.GraphMeta, error) {
	metas, err := s.List(ctx)
	if err != nil {
		return graphstore.GraphMeta{}, err
	}
	for _, m := range metas {
		if m.ContentHash == hash {
			return m, nil
		}
	}
	return graphstore.GraphMeta{}, graphstore.ErrNotFound
}

func (s *GraphStore) Load(ctx context.Context, id string) (*story.Graph, error) {
	m, err := s.getMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	base := buildKey(id, m.Build)
	g := &story.Graph{}

	nodes, err := s.listSorted(ctx, base+"/nodes")
	if err != nil {
		return nil, err
	}
	for _, c := range nodes {
		var v nodeValue
		if err := json.Unmarshal(c.Value, &v); err != nil {
			return nil, fmt.Errorf("decode node %s: %w", c.Key, err)
		}
		g.Pages = append(g.Pages, story.PageRecord{
			PDFPageNumber: v.PDFPageNumber,
			Label:         v.Label,
			Tags:          story.NewTagSet(v.Tags...),
			WordCount:     v.WordCount,
		})
	}

	edges, err := s.listSorted(ctx, base+"/edges")
	if err != nil {
		return nil, err
	}
	for _, c := range edges {
		var v edgeValue
		if err := json.Unmarshal(c.Value, &v); err != nil {
			return nil, fmt.Errorf("decode edge %s: %w", c.Key, err)
		}
		g.Edges = append(g.Edges, story.Edge{
			From: v.From, To: v.To, Kind: v.Kind,
			ChoiceText: v.ChoiceText,
			WordCount:  v.WordCount,
		})
	}

	warnings, err := s.listSorted(ctx, base+"/warnings")
	if err != nil {
		return nil, err
	}
	for _, c := range warnings {
		var w story.Warning
		if err := json.Unmarshal(c.Value, &w); err != nil {
			return nil, fmt.Errorf("decode warning %s: %w", c.Key, err)
		}
		g.Warnings = append(g.Warnings, w)
	}
	return g, nil
}

// listSorted scans prefix and orders the entries by key. Keys use
// zero-padded numbers, so key order is page or write order.
func (s *GraphStore) listSorted(ctx context.Context, prefix string) ([]ListChildrenResponse, error) {
	children, err := s.client.ListChildren(ctx, prefix, 0)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(children, func(a, b ListChildrenResponse) int {
		return strings.Compare(a.Key, b.Key)
	})
	return children, nil
}

func (s *GraphStore) Paths(ctx context.Context, id string, q graphstore.PathQuery) ([][]int, error) {
	g, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return graphstore.FindPaths(g, q)
}

func (s *GraphStore) Delete(ctx context.Context, id string) error {
	if _, err := s.getMeta(ctx, id); err != nil {
		return err
	}
	return s.client.DeleteNode(ctx, graphKey(id), true)
}

func (s *GraphStore) Close() error {
	s.client.Close()
	return nil
}

type writer struct {
	store *GraphStore
	meta  metaValue
	base  string
	pages map[graphstore.NodeID]int
	seen  map[string]bool
	edges int
	warns int
	done  bool
}

func (w *writer) put(ctx context.Context, key string, v any) error {
	if w.done {
		return errors.New("writer is closed")
	}
	return w.store.client.PutNode(ctx, key, NodeRequest{Value: v, Source: w.store.source})
}

func (w *writer) CreateNode(ctx context.Context, tags []story.Tag, props graphstore.NodeProps) (graphstore.NodeID, error) {
	key := nodeKey(w.base, props.PDFPageNumber)
	if err := w.put(ctx, key, nodeValue{NodeProps: props, Tags: tags}); err != nil {
		return "", err
	}
	id := graphstore.NodeID(key)
	w.pages[id] = props.PDFPageNumber
	return id, nil
}

func (w *writer) CreateEdge(ctx context.Context, from, to graphstore.NodeID, kind story.EdgeKind, props graphstore.EdgeProps) error {
	fp, ok := w.pages[from]
	if !ok {
		return fmt.Errorf("create edge: unknown node %s", from)
	}
	tp, ok := w.pages[to]
	if !ok {
		return fmt.Errorf("create edge: unknown node %s", to)
	}
	dedup := fmt.Sprintf("%d|%d|%s", fp, tp, kind)
	if w.seen[dedup] {
		return nil
	}

	w.edges++
	v := edgeValue{EdgeProps: props, From: fp, To: tp, Kind: kind}
	if err := w.put(ctx, seqKey(w.base+"/edges", w.edges), v); err != nil {
		return err
	}
	err := w.store.client.PutLink(ctx, LinkRequest{
		From:    string(from),
		To:      string(to),
		Weight:  1,
		Summary: string(kind),
	})
	if err != nil {
		return err
	}
	w.seen[dedup] = true
	return nil
}

func (w *writer) AddWarning(ctx context.Context, warn story.Warning) error {
	w.warns++
	return w.put(ctx, seqKey(w.base+"/warnings", w.warns), warn)
}

// Commit publishes the build by writing the meta key, then drops the build
// it superseded. Cleanup is best effort: the new build is already visible.
func (w *writer) Commit(ctx context.Context) error {
	id := w.meta.ID
	prev, err := w.store.getMeta(ctx, id)
	if err != nil && !errors.Is(err, graphstore.ErrNotFound) {
		return err
	}
	if err := w.put(ctx, metaKey(id), w.meta); err != nil {
		return err
	}
	w.done = true
	if prev.Build != "" && prev.Build != w.meta.Build {
		_ = w.store.client.DeleteNode(ctx, buildKey(id, prev.Build), true)
	}
	return nil
}

func (w *writer) Rollback(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.store.client.DeleteNode(ctx, w.base, true)
}
