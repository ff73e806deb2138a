// Package graphstore persists built story graphs. A build is written through
// a Writer and becomes visible only when the Writer commits.
package graphstore

import (
	"context"
	"errors"
	"time"

	"github.com/dgallion1/storygraph/internal/story"
)

// ErrNotFound is returned when a graph ID (or content hash) is unknown.
var ErrNotFound = errors.New("graph not found")

// NodeID identifies a node within one store. Its format is store-specific.
type NodeID string

// NodeProps are the properties stored on a page node.
type NodeProps struct {
	PDFPageNumber int    `json:"pdf_page_number"`
	Label         string `json:"label"`
	WordCount     int    `json:"word_count"`
}

// EdgeProps are the properties stored on an edge.
type EdgeProps struct {
	ChoiceText string `json:"choice_text,omitempty"`
	WordCount  int    `json:"word_count"`
}

// GraphMeta describes one stored graph.
type GraphMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SourceName   string    `json:"source_name"`
	ContentHash  string    `json:"content_hash"`
	PageCount    int       `json:"page_count"`
	EdgeCount    int       `json:"edge_count"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Writer receives one build. Nothing it writes is visible to readers until
// Commit succeeds; Rollback discards everything. Writing an edge whose
// (from, to, kind) was already written is a no-op.
type Writer interface {
	CreateNode(ctx context.Context, tags []story.Tag, props NodeProps) (NodeID, error)
	CreateEdge(ctx context.Context, from, to NodeID, kind story.EdgeKind, props EdgeProps) error
	AddWarning(ctx context.Context, w story.Warning) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store holds any number of graphs keyed by GraphMeta.ID. Committing a build
// for an existing ID replaces that graph.
type Store interface {
	Begin(ctx context.Context, meta GraphMeta) (Writer, error)
	Get(ctx context.Context, id string) (GraphMeta, error)
	List(ctx context.Context) ([]GraphMeta, error)
	FindByHash(ctx context.Context, hash string) (GraphMeta, error)
	Load(ctx context.Context, id string) (*story.Graph, error)
	Paths(ctx context.Context, id string, q PathQuery) ([][]int, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
