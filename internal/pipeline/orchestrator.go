package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/storygraph/internal/config"
	"github.com/dgallion1/storygraph/internal/graphstore"
)

// Orchestrator queues graph builds and runs them one at a time.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	store graphstore.Store
	stats *BuildStats
	log   *slog.Logger
	cfg   config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to begin processing.
func NewOrchestrator(cfg config.Config, store graphstore.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		store: store,
		stats: NewBuildStats(cfg.StatsWindow),
		log:   log,
		cfg:   cfg,
	}
}

// Start launches the build worker and the job cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		w := NewWorker(o.store, o.stats, o.log)
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				w.Process(workerCtx, job)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// NewJob creates a queued job for an uploaded file. An empty subBookPrefix
// pointer means the configured default.
func (o *Orchestrator) NewJob(filename, title, graphID string, subBookPrefix *string, force bool, data []byte) *Job {
	prefix := o.cfg.SubBookPrefix
	if subBookPrefix != nil {
		prefix = *subBookPrefix
	}
	now := time.Now()
	job := &Job{
		ID:            uuid.New().String(),
		GraphID:       graphID,
		Status:        StatusQueued,
		Phase:         "queued",
		Filename:      filename,
		Title:         title,
		SubBookPrefix: prefix,
		Force:         force,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	job.SetFileData(data)
	return job
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		job.releaseFileData()
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Store returns the graph store for direct use by API handlers.
func (o *Orchestrator) Store() graphstore.Store {
	return o.store
}

// Stats returns the rolling build duration stats.
func (o *Orchestrator) Stats() *BuildStats {
	return o.stats
}

// Run processes job on the caller's goroutine, bypassing the queue. The CLI
// builds this way.
func (o *Orchestrator) Run(ctx context.Context, job *Job) JobSnapshot {
	o.jobs.Put(job)
	NewWorker(o.store, o.stats, o.log).Process(ctx, job)
	return job.Snapshot()
}
