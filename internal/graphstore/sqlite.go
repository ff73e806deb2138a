package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/storygraph/internal/story"
)

const schema = `
CREATE TABLE IF NOT EXISTS graphs (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	source_name   TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	page_count    INTEGER NOT NULL,
	edge_count    INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS graphs_content_hash ON graphs(content_hash);

CREATE TABLE IF NOT EXISTS nodes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_id   TEXT NOT NULL,
	page       INTEGER NOT NULL,
	label      TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	UNIQUE(graph_id, page)
);

CREATE TABLE IF NOT EXISTS node_tags (
	graph_id TEXT NOT NULL,
	node_id  INTEGER NOT NULL,
	tag      TEXT NOT NULL,
	PRIMARY KEY(node_id, tag)
);
CREATE INDEX IF NOT EXISTS node_tags_graph ON node_tags(graph_id, tag);

CREATE TABLE IF NOT EXISTS edges (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_id    TEXT NOT NULL,
	from_node   INTEGER NOT NULL,
	to_node     INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	choice_text TEXT NOT NULL,
	word_count  INTEGER NOT NULL,
	UNIQUE(graph_id, from_node, to_node, kind)
);
CREATE INDEX IF NOT EXISTS edges_from ON edges(graph_id, from_node);

CREATE TABLE IF NOT EXISTS warnings (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_id    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	page        INTEGER NOT NULL,
	destination TEXT NOT NULL,
	target      INTEGER NOT NULL,
	message     TEXT NOT NULL
);
`

// SQLiteStore keeps graphs in an embedded SQLite database using the pure Go
// modernc.org/sqlite driver. Each build is a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Begin(ctx context.Context, meta GraphMeta) (Writer, error) {
	if meta.ID == "" {
		return nil, errors.New("graph id is required")
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	if err := deleteGraph(ctx, tx, meta.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO graphs
		(id, title, source_name, content_hash, page_count, edge_count, warning_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Title, meta.SourceName, meta.ContentHash,
		meta.PageCount, meta.EdgeCount, meta.WarningCount,
		meta.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert graph: %w", err)
	}
	return &sqliteWriter{tx: tx, graphID: meta.ID}, nil
}

const metaColumns = `id, title, source_name, content_hash, page_count, edge_count, warning_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (GraphMeta, error) {
	var m GraphMeta
	var created string
	if err := row.Scan(&m.ID, &m.Title, &m.SourceName, &m.ContentHash,
		&m.PageCount, &m.EdgeCount, &m.WarningCount, &created); err != nil {
		return GraphMeta{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return GraphMeta{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	m.CreatedAt = t
	return m, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (GraphMeta, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+metaColumns+` FROM graphs WHERE id = ?`, id)
	m, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GraphMeta{}, ErrNotFound
	}
	if err != nil {
		return GraphMeta{}, fmt.Errorf("get graph %s: %w", id, err)
	}
	return m, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]GraphMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+metaColumns+` FROM graphs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	defer rows.Close()
	out := []GraphMeta{}
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan graph: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindByHash(ctx context.Context, hash string) (GraphMeta, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+metaColumns+` FROM graphs
		WHERE content_hash = ? ORDER BY created_at DESC, id LIMIT 1`, hash)
	m, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GraphMeta{}, ErrNotFound
	}
	if err != nil {
		return GraphMeta{}, fmt.Errorf("find graph by hash: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*story.Graph, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	g := &story.Graph{}

	rows, err := s.db.QueryContext(ctx, `SELECT n.page, n.label, n.word_count, COALESCE(t.tag, '')
		FROM nodes n LEFT JOIN node_tags t ON t.node_id = n.id
		WHERE n.graph_id = ? ORDER BY n.page`, id)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	for rows.Next() {
		var p story.PageRecord
		var tag string
		if err := rows.Scan(&p.PDFPageNumber, &p.Label, &p.WordCount, &tag); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if n := len(g.Pages); n == 0 || g.Pages[n-1].PDFPageNumber != p.PDFPageNumber {
			p.Tags = story.NewTagSet()
			g.Pages = append(g.Pages, p)
		}
		if tag != "" {
			g.Pages[len(g.Pages)-1].Tags.Add(story.Tag(tag))
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT f.page, t.page, e.kind, e.choice_text, e.word_count
		FROM edges e
		JOIN nodes f ON f.id = e.from_node
		JOIN nodes t ON t.id = e.to_node
		WHERE e.graph_id = ? ORDER BY e.seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	for rows.Next() {
		var e story.Edge
		var kind string
		if err := rows.Scan(&e.From, &e.To, &kind, &e.ChoiceText, &e.WordCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = story.EdgeKind(kind)
		g.Edges = append(g.Edges, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT kind, page, destination, target, message
		FROM warnings WHERE graph_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load warnings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var w story.Warning
		var kind string
		if err := rows.Scan(&kind, &w.Page, &w.Destination, &w.Target, &w.Message); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		w.Kind = story.WarningKind(kind)
		g.Warnings = append(g.Warnings, w)
	}
	return g, rows.Err()
}

// Paths loads the graph and searches it in memory. A recursive CTE cannot
// stop early once DISTINCT and ORDER BY apply, so dense graphs would never
// return; FindPaths bounds the frontier instead.
func (s *SQLiteStore) Paths(ctx context.Context, id string, q PathQuery) ([][]int, error) {
	g, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FindPaths(g, q)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM graphs WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("delete graph %s: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	if err := deleteGraph(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteGraph(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"warnings", "edges", "node_tags", "nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE graph_id = ?`, id); err != nil {
			return fmt.Errorf("delete %s of graph %s: %w", table, id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete graph %s: %w", id, err)
	}
	return nil
}

type sqliteWriter struct {
	tx      *sql.Tx
	graphID string
}

func (w *sqliteWriter) CreateNode(ctx context.Context, tags []story.Tag, props NodeProps) (NodeID, error) {
	res, err := w.tx.ExecContext(ctx, `INSERT INTO nodes (graph_id, page, label, word_count)
		VALUES (?, ?, ?, ?)`, w.graphID, props.PDFPageNumber, props.Label, props.WordCount)
	if err != nil {
		return "", fmt.Errorf("insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("insert node: %w", err)
	}
	for _, t := range tags {
		if _, err := w.tx.ExecContext(ctx, `INSERT OR IGNORE INTO node_tags (graph_id, node_id, tag)
			VALUES (?, ?, ?)`, w.graphID, id, string(t)); err != nil {
			return "", fmt.Errorf("insert node tag: %w", err)
		}
	}
	return NodeID(strconv.FormatInt(id, 10)), nil
}

func (w *sqliteWriter) CreateEdge(ctx context.Context, from, to NodeID, kind story.EdgeKind, props EdgeProps) error {
	fromID, err := strconv.ParseInt(string(from), 10, 64)
	if err != nil {
		return fmt.Errorf("create edge: bad node id %q", from)
	}
	toID, err := strconv.ParseInt(string(to), 10, 64)
	if err != nil {
		return fmt.Errorf("create edge: bad node id %q", to)
	}
	_, err = w.tx.ExecContext(ctx, `INSERT OR IGNORE INTO edges
		(graph_id, from_node, to_node, kind, choice_text, word_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.graphID, fromID, toID, string(kind), props.ChoiceText, props.WordCount)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

func (w *sqliteWriter) AddWarning(ctx context.Context, warn story.Warning) error {
	_, err := w.tx.ExecContext(ctx, `INSERT INTO warnings
		(graph_id, kind, page, destination, target, message) VALUES (?, ?, ?, ?, ?, ?)`,
		w.graphID, string(warn.Kind), warn.Page, warn.Destination, warn.Target, warn.Message)
	if err != nil {
		return fmt.Errorf("insert warning: %w", err)
	}
	return nil
}

func (w *sqliteWriter) Commit(_ context.Context) error {
	return w.tx.Commit()
}

func (w *sqliteWriter) Rollback(_ context.Context) error {
	err := w.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
