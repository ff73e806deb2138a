package graphstore

import (
	"errors"
	"slices"

	"github.com/dgallion1/storygraph/internal/story"
)

const (
	DefaultMaxDepth  = 20
	DefaultPathLimit = 100

	// maxFrontier bounds the number of partial paths held at one depth.
	maxFrontier = 200_000
)

// ErrPathSearchTooLarge is returned when a path query fans out past the
// search bound. Lower MaxDepth or narrow the tags.
var ErrPathSearchTooLarge = errors.New("path search exceeds bound")

// PathQuery selects simple paths of at least one edge that start at a page
// carrying every FromTags tag and end at a page carrying every ToTags tag.
// Empty tag lists match any page.
type PathQuery struct {
	FromTags []story.Tag
	ToTags   []story.Tag
	MaxDepth int // edges; <= 0 means DefaultMaxDepth
	Limit    int // <= 0 means DefaultPathLimit
}

func (q PathQuery) normalized() PathQuery {
	if q.MaxDepth <= 0 {
		q.MaxDepth = DefaultMaxDepth
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPathLimit
	}
	return q
}

// FindPaths runs q against an in-memory graph. Paths are returned shortest
// first, ties broken by comparing page numbers left to right.
func FindPaths(g *story.Graph, q PathQuery) ([][]int, error) {
	q = q.normalized()

	tags := make(map[int]story.TagSet, len(g.Pages))
	for _, p := range g.Pages {
		tags[p.PDFPageNumber] = p.Tags
	}
	adj := make(map[int][]int)
	for _, e := range g.Edges {
		if !slices.Contains(adj[e.From], e.To) {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}

	var frontier [][]int
	for _, p := range g.Pages {
		if p.Tags.HasAll(q.FromTags) {
			frontier = append(frontier, []int{p.PDFPageNumber})
		}
	}

	var found [][]int
	for depth := 1; depth <= q.MaxDepth && len(frontier) > 0; depth++ {
		var next [][]int
		for _, path := range frontier {
			last := path[len(path)-1]
			for _, to := range adj[last] {
				if slices.Contains(path, to) {
					continue
				}
				ext := append(slices.Clip(path), to)
				if t, ok := tags[to]; ok && t.HasAll(q.ToTags) {
					found = append(found, ext)
				}
				next = append(next, ext)
			}
			if len(next) > maxFrontier {
				return nil, ErrPathSearchTooLarge
			}
		}
		if len(found) >= q.Limit {
			break
		}
		frontier = next
	}
	return limitPaths(found, q.Limit), nil
}

// limitPaths sorts paths into result order and keeps the first limit.
func limitPaths(paths [][]int, limit int) [][]int {
	slices.SortFunc(paths, comparePaths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	if paths == nil {
		paths = [][]int{}
	}
	return paths
}

func comparePaths(a, b []int) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return slices.Compare(a, b)
}
