package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/storygraph/internal/graphstore"
	"github.com/dgallion1/storygraph/internal/report"
	"github.com/dgallion1/storygraph/internal/story"
	"github.com/go-chi/chi/v5"
)

// handleListGraphs lists stored graphs, newest first.
func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	metas, err := s.orchestrator.Store().List(r.Context())
	if err != nil {
		s.log.Error("list graphs", "error", err)
		jsonError(w, "failed to list graphs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if metas == nil {
		metas = []graphstore.GraphMeta{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"graphs": metas})
}

// handleGetGraph returns a graph's metadata with its summary counts.
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	meta, g, ok := s.loadGraph(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"graph":   meta,
		"summary": report.Summarize(g),
	})
}

// handlePaths runs a tag-to-tag path query, e.g.
// ?from=SubBook&to=SubBook,EndPage&max_depth=20.
func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	q := r.URL.Query()

	from, err := parseTags(q.Get("from"))
	if err != nil {
		jsonError(w, "from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTags(q.Get("to"))
	if err != nil {
		jsonError(w, "to: "+err.Error(), http.StatusBadRequest)
		return
	}
	maxDepth, err := boundedInt(q.Get("max_depth"), s.cfg.MaxPathDepth)
	if err != nil {
		jsonError(w, "max_depth: "+err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := boundedInt(q.Get("limit"), s.cfg.MaxPaths)
	if err != nil {
		jsonError(w, "limit: "+err.Error(), http.StatusBadRequest)
		return
	}

	paths, err := s.orchestrator.Store().Paths(r.Context(), graphID, graphstore.PathQuery{
		FromTags: from,
		ToTags:   to,
		MaxDepth: maxDepth,
		Limit:    limit,
	})
	switch {
	case errors.Is(err, graphstore.ErrNotFound):
		jsonError(w, "graph not found", http.StatusNotFound)
		return
	case errors.Is(err, graphstore.ErrPathSearchTooLarge):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.log.Error("path query", "graph_id", graphID, "error", err)
		jsonError(w, "path query failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"graph_id":  graphID,
		"max_depth": maxDepth,
		"limit":     limit,
		"count":     len(paths),
		"paths":     paths,
	})
}

// handleReport renders the graph report as Markdown, or HTML with format=html.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	meta, g, ok := s.loadGraph(w, r)
	if !ok {
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(report.Markdown(meta, g)))
	case "html":
		html, err := report.HTML(meta, g)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	default:
		jsonError(w, "format must be markdown or html", http.StatusBadRequest)
	}
}

// handleDeleteGraph deletes a graph with its pages, edges and warnings.
func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	err := s.orchestrator.Store().Delete(r.Context(), graphID)
	if errors.Is(err, graphstore.ErrNotFound) {
		jsonError(w, "graph not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("delete graph", "graph_id", graphID, "error", err)
		jsonError(w, "failed to delete graph: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("graph deleted", "graph_id", graphID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": graphID})
}

// loadGraph fetches meta and graph for the graphID URL parameter, writing
// the error response itself when it fails.
func (s *Server) loadGraph(w http.ResponseWriter, r *http.Request) (graphstore.GraphMeta, *story.Graph, bool) {
	graphID := chi.URLParam(r, "graphID")
	store := s.orchestrator.Store()
	meta, err := store.Get(r.Context(), graphID)
	if err == nil {
		var g *story.Graph
		if g, err = store.Load(r.Context(), graphID); err == nil {
			return meta, g, true
		}
	}
	if errors.Is(err, graphstore.ErrNotFound) {
		jsonError(w, "graph not found", http.StatusNotFound)
	} else {
		s.log.Error("load graph", "graph_id", graphID, "error", err)
		jsonError(w, "failed to load graph: "+err.Error(), http.StatusInternalServerError)
	}
	return graphstore.GraphMeta{}, nil, false
}

// parseTags parses a comma-separated tag list. Empty input matches any page.
func parseTags(raw string) ([]story.Tag, error) {
	var tags []story.Tag
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, ok := story.ParseTag(part)
		if !ok {
			return nil, fmt.Errorf("unknown tag %q", part)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// boundedInt parses an optional positive integer, clamped to max. Empty
// input yields max.
func boundedInt(raw string, max int) (int, error) {
	if raw == "" {
		return max, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer, got %q", raw)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
