package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/storygraph/internal/graphstore"
)

// Worker processes a single graph build job.
type Worker struct {
	store graphstore.Store
	stats *BuildStats
	log   *slog.Logger
}

func NewWorker(store graphstore.Store, stats *BuildStats, log *slog.Logger) *Worker {
	return &Worker{store: store, stats: stats, log: log}
}

// Process runs the full build pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	start := time.Now()
	defer job.releaseFileData()

	// Phase 1: Dedup check
	data := job.FileData()
	hash := ContentHashHex(data)
	graphID := job.setIdentity(hash)
	log = log.With("graph_id", graphID)

	if !job.Force {
		existing, err := w.store.FindByHash(ctx, hash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_graph_id", existing.ID)
			job.MarkDuplicate(existing.ID)
			return
		case !errors.Is(err, graphstore.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := OpenDocument(data, job.Filename)
	if err != nil {
		w.fail(log, job, "parsing", err)
		return
	}
	defer doc.Close()

	// Phase 3: Label, classify, link
	g, err := BuildDocument(ctx, doc, BuildOptions{
		SubBookPrefix: job.SubBookPrefix,
		OnPhase:       func(s JobStatus) { job.SetStatus(s, string(s)) },
		OnPage:        job.SetPages,
	}, log)
	if err != nil {
		w.fail(log, job, "building", err)
		return
	}
	job.SetGraphCounts(len(g.Edges), len(g.Warnings))
	for _, warn := range g.Warnings {
		job.AddError(fmt.Sprintf("page %d: %s", warn.Page, warn.Message))
	}

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	title := job.Title
	if title == "" {
		title = job.Filename
	}
	meta, err := graphstore.Persist(ctx, w.store, graphstore.GraphMeta{
		ID:          graphID,
		Title:       title,
		SourceName:  job.Filename,
		ContentHash: hash,
		CreatedAt:   time.Now().UTC(),
	}, g)
	if err != nil {
		w.fail(log, job, "storing", err)
		return
	}

	elapsed := time.Since(start)
	if w.stats != nil {
		w.stats.Record(elapsed)
	}
	log.Info("graph stored",
		"pages", meta.PageCount, "edges", meta.EdgeCount,
		"warnings", meta.WarningCount, "duration_ms", elapsed.Milliseconds())
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("build failed", "phase", phase, "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}
