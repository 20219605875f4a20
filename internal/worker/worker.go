// Package worker orchestrates render jobs: one goroutine per job drives the
// two part renders in parallel and lands the job in a terminal state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nanobanana/comicd/internal/jobstore"
	"github.com/nanobanana/comicd/internal/models"
)

const (
	// jobTimeout bounds the whole render; partTimeout bounds each part.
	jobTimeout  = 15 * time.Minute
	partTimeout = 5 * time.Minute

	// awaitPollInterval is the fallback polling cadence for jobs whose done
	// channel is not in this process (revived after a restart).
	awaitPollInterval = 3 * time.Second
)

// RenderTimeoutError marks a part render that hit its wall-clock deadline.
type RenderTimeoutError struct {
	PartNo  int
	Timeout time.Duration
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("part %d render timed out after %s", e.PartNo, e.Timeout)
}

// PartRenderer renders one part of a script. The production implementation
// is renderer.Renderer.
type PartRenderer interface {
	RenderPart(ctx context.Context, jobID string, script *models.Script, partNo int) (*models.RenderedPart, error)
}

// Orchestrator owns job lifecycle: creation, background rendering, and
// completion waiting.
type Orchestrator struct {
	store    *jobstore.Store
	renderer PartRenderer

	mu   sync.Mutex
	done map[string]chan struct{} // closed when the job goroutine finishes
}

func NewOrchestrator(store *jobstore.Store, renderer PartRenderer) *Orchestrator {
	return &Orchestrator{
		store:    store,
		renderer: renderer,
		done:     make(map[string]chan struct{}),
	}
}

// StartRenderJob validates the script, creates a queued job with its
// read-along pages precomputed, and kicks off the render goroutine. The
// returned job id is immediately pollable.
func (o *Orchestrator) StartRenderJob(script *models.Script, jobID string) (string, error) {
	o.store.Cleanup()

	if err := script.Validate(); err != nil {
		return "", fmt.Errorf("invalid script: %w", err)
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	job := &models.Job{
		JobID:     jobID,
		CreatedAt: time.Now(),
		Status:    models.JobStatusQueued,
		Script:    script,
		ReadPages: models.BuildReadAlongPages(script),
	}
	if err := o.store.Create(job); err != nil {
		return "", err
	}

	ch := make(chan struct{})
	o.mu.Lock()
	o.done[jobID] = ch
	o.mu.Unlock()

	log.Printf("[Worker] Job %s queued", jobID)
	go o.run(jobID, script, ch)

	return jobID, nil
}

// GetJob returns a snapshot of the job.
func (o *Orchestrator) GetJob(jobID string) (*models.Job, error) {
	return o.store.Get(jobID)
}

// run drives both part renders in parallel. A plain errgroup (no shared
// cancellation) is used on purpose: a Part 1 failure must not abort Part 2,
// so a partially failed job still carries every panel that rendered.
func (o *Orchestrator) run(jobID string, script *models.Script, ch chan struct{}) {
	defer func() {
		close(ch)
		o.mu.Lock()
		delete(o.done, jobID)
		o.mu.Unlock()
	}()

	if err := o.store.Update(jobID, func(j *models.Job) {
		j.Status = models.JobStatusRendering
	}); err != nil {
		log.Printf("[Worker] WARNING: failed to mark job %s rendering: %v", jobID, err)
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	results := make([]*models.RenderedPart, models.PartCount)
	errs := make([]error, models.PartCount)

	var g errgroup.Group
	for partNo := 1; partNo <= models.PartCount; partNo++ {
		partNo := partNo
		g.Go(func() error {
			results[partNo-1], errs[partNo-1] = o.renderPart(jobCtx, jobID, script, partNo)
			return nil
		})
	}
	_ = g.Wait()

	var failures []string
	for partNo := 1; partNo <= models.PartCount; partNo++ {
		if errs[partNo-1] != nil {
			failures = append(failures, fmt.Sprintf("Part %d failed: %v", partNo, errs[partNo-1]))
		}
	}

	updateErr := o.store.Update(jobID, func(j *models.Job) {
		j.Part1 = results[0]
		j.Part2 = results[1]
		if len(failures) > 0 {
			j.Status = models.JobStatusError
			j.Error = strings.Join(failures, "; ")
		} else {
			j.Status = models.JobStatusDone
		}
	})
	if updateErr != nil {
		log.Printf("[Worker] WARNING: failed to finalize job %s: %v", jobID, updateErr)
		return
	}

	if len(failures) > 0 {
		log.Printf("[Worker] Job %s finished with errors: %s", jobID, strings.Join(failures, "; "))
	} else {
		log.Printf("[Worker] Job %s done", jobID)
	}
}

func (o *Orchestrator) renderPart(jobCtx context.Context, jobID string, script *models.Script, partNo int) (*models.RenderedPart, error) {
	partCtx, cancel := context.WithTimeout(jobCtx, partTimeout)
	defer cancel()

	start := time.Now()
	rendered, err := o.renderer.RenderPart(partCtx, jobID, script, partNo)
	if err != nil {
		if errors.Is(partCtx.Err(), context.DeadlineExceeded) {
			return nil, &RenderTimeoutError{PartNo: partNo, Timeout: expiredBudget(jobCtx)}
		}
		return nil, err
	}
	log.Printf("[Worker] Job %s part %d rendered in %s", jobID, partNo, time.Since(start).Round(time.Second))
	return rendered, nil
}

// expiredBudget names the budget that actually ran out: the part context is
// a child of the job context, so when both are expired the job deadline is
// the one that fired.
func expiredBudget(jobCtx context.Context) time.Duration {
	if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return jobTimeout
	}
	return partTimeout
}

// AwaitJob blocks until the job reaches a terminal state or the timeout
// elapses, returning the final snapshot. Jobs started in this process are
// awaited on their done channel; revived jobs fall back to polling.
func (o *Orchestrator) AwaitJob(ctx context.Context, jobID string, timeout time.Duration) (*models.Job, error) {
	deadline := time.Now().Add(timeout)

	o.mu.Lock()
	ch, inProcess := o.done[jobID]
	o.mu.Unlock()

	if inProcess {
		select {
		case <-ch:
		case <-time.After(timeout):
			return nil, fmt.Errorf("job %s did not finish within %s", jobID, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return o.store.Get(jobID)
	}

	ticker := time.NewTicker(awaitPollInterval)
	defer ticker.Stop()
	for {
		job, err := o.store.Get(jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s did not finish within %s", jobID, timeout)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
