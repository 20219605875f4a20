// Package jobstore keeps render jobs in memory with a disk-backed persister,
// so job state survives process restarts until the TTL sweeps it away.
package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nanobanana/comicd/internal/models"
)

// JobTTL is how long a job record lives after creation. Remote blobs are
// not touched by GC; only local state is reclaimed.
const JobTTL = 30 * time.Minute

// ErrNotFound is returned when a job is absent from both memory and disk.
var ErrNotFound = errors.New("job not found")

// Persister is the durable side of the store. FileStore is the production
// implementation; tests substitute an in-memory one.
type Persister interface {
	Save(job *models.Job) error
	Load(jobID string) (*models.Job, error)
	Delete(jobID string) error
	// ListExpired returns the IDs of persisted jobs older than the cutoff,
	// including IDs whose records cannot be parsed.
	ListExpired(cutoff time.Time) ([]string, error)
}

// Store is the in-memory job registry. All mutations go through Update so
// memory and disk never diverge.
type Store struct {
	mu        sync.Mutex
	jobs      map[string]*models.Job
	persister Persister
}

func New(p Persister) *Store {
	return &Store{
		jobs:      make(map[string]*models.Job),
		persister: p,
	}
}

// Create registers a new job and persists it.
func (s *Store) Create(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	s.jobs[job.JobID] = job
	if err := s.persister.Save(job); err != nil {
		return fmt.Errorf("persisting job %s: %w", job.JobID, err)
	}
	return nil
}

// Get returns a snapshot of the job, reviving it from disk when the process
// has restarted since creation. Expired jobs are swept before lookup.
func (s *Store) Get(jobID string) (*models.Job, error) {
	s.sweep(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.lookupLocked(jobID)
	if err != nil {
		return nil, err
	}
	snapshot := *job
	return &snapshot, nil
}

// Update applies mutate to the job under the store lock and persists the
// result. The job is revived from disk first if memory lost it.
func (s *Store) Update(jobID string, mutate func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.lookupLocked(jobID)
	if err != nil {
		return err
	}
	mutate(job)
	if err := s.persister.Save(job); err != nil {
		return fmt.Errorf("persisting job %s: %w", jobID, err)
	}
	return nil
}

// Delete removes the job from memory and disk.
func (s *Store) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, jobID)
	return s.persister.Delete(jobID)
}

// Cleanup sweeps expired jobs from memory and disk.
func (s *Store) Cleanup() {
	s.sweep(time.Now())
}

func (s *Store) lookupLocked(jobID string) (*models.Job, error) {
	if job, ok := s.jobs[jobID]; ok {
		return job, nil
	}
	job, err := s.persister.Load(jobID)
	if err != nil {
		return nil, err
	}
	s.jobs[jobID] = job
	return job, nil
}

func (s *Store) sweep(now time.Time) {
	cutoff := now.Add(-JobTTL)

	s.mu.Lock()
	var expired []string
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	diskExpired, err := s.persister.ListExpired(cutoff)
	if err != nil {
		log.Printf("[JobStore] WARNING: disk sweep failed: %v", err)
	}
	expired = append(expired, diskExpired...)

	for _, id := range expired {
		if err := s.persister.Delete(id); err != nil {
			log.Printf("[JobStore] WARNING: failed to delete expired job %s: %v", id, err)
		}
	}
	if len(expired) > 0 {
		log.Printf("[JobStore] Swept %d expired job(s)", len(expired))
	}
}

// FileStore persists jobs as job_{id}.json files in the export directory,
// alongside the PDFs and grid previews it also cleans up on delete.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// JobPath is the on-disk location of a job record.
func (f *FileStore) JobPath(jobID string) string {
	return filepath.Join(f.dir, "job_"+jobID+".json")
}

// PDFPath is the on-disk location of a job's exported PDF.
func (f *FileStore) PDFPath(jobID string) string {
	return filepath.Join(f.dir, "nanobanana_comic_panels_"+jobID+".pdf")
}

// GridPreviewPath is the on-disk location of a part's grid preview PNG.
func (f *FileStore) GridPreviewPath(jobID string, partNo int) string {
	return filepath.Join(f.dir, fmt.Sprintf("nanobanana_grid_%s_part%d.png", jobID, partNo))
}

// VideoPath is the on-disk location of a job's rendered video.
func (f *FileStore) VideoPath(jobID string) string {
	return filepath.Join(f.dir, "nanobanana_video_"+jobID+".mp4")
}

func (f *FileStore) Save(job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	tmp := f.JobPath(job.JobID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.JobPath(job.JobID))
}

func (f *FileStore) Load(jobID string) (*models.Job, error) {
	data, err := os.ReadFile(f.JobPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		// Corrupt record: remove it so it stops shadowing the ID.
		_ = os.Remove(f.JobPath(jobID))
		return nil, ErrNotFound
	}
	return &job, nil
}

// Delete removes the job record plus its local artifacts (PDF and grid
// previews).
func (f *FileStore) Delete(jobID string) error {
	var firstErr error
	remove := func(path string) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	remove(f.JobPath(jobID))
	remove(f.PDFPath(jobID))
	remove(f.VideoPath(jobID))
	for partNo := 1; partNo <= models.PartCount; partNo++ {
		remove(f.GridPreviewPath(jobID, partNo))
	}
	return firstErr
}

func (f *FileStore) ListExpired(cutoff time.Time) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "job_*.json"))
	if err != nil {
		return nil, err
	}

	var expired []string
	for _, path := range matches {
		base := filepath.Base(path)
		jobID := base[len("job_") : len(base)-len(".json")]

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var job models.Job
		if err := json.Unmarshal(data, &job); err != nil {
			// Unparseable records are swept too.
			expired = append(expired, jobID)
			continue
		}
		if job.CreatedAt.Before(cutoff) {
			expired = append(expired, jobID)
		}
	}
	return expired, nil
}
