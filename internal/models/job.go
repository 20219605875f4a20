package models

import "time"

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRendering JobStatus = "rendering_parallel"
	JobStatusDone      JobStatus = "done"
	JobStatusError     JobStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// RenderedPart is the output of rendering one part: the full grid page plus
// its nine split panels. Panels[i] (base64 PNG) and PanelURLs[i] correspond
// 1:1, in reading order, to the part's panels sorted by panel_no — index i
// maps to panel_no i+1. A failed upload leaves an empty URL in its slot;
// the base64 copy is the local fallback.
type RenderedPart struct {
	PartNo      int      `json:"part_no"`
	GridPath    string   `json:"grid_path,omitempty"` // local preview PNG
	GridURL     string   `json:"grid_url,omitempty"`  // blob URL of the full page
	Panels      []string `json:"panels"`              // base64 PNG, row-major
	PanelURLs   []string `json:"panel_urls"`          // blob URLs, row-major
	ImageModel  string   `json:"image_model,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
}

// UploadedPanels counts the panels that made it to blob storage.
func (rp *RenderedPart) UploadedPanels() int {
	n := 0
	for _, u := range rp.PanelURLs {
		if u != "" {
			n++
		}
	}
	return n
}

// Job is the unit of work for one full render request. It is created by the
// orchestrator, mutated only through the job store, and garbage collected
// 30 minutes after creation. Panel blobs in remote storage outlive the job
// record — GC only removes local files.
type Job struct {
	JobID     string          `json:"job_id"`
	CreatedAt time.Time       `json:"created_at"`
	Status    JobStatus       `json:"status"`
	Error     string          `json:"error,omitempty"`
	Script    *Script         `json:"script,omitempty"`
	Part1     *RenderedPart   `json:"part1,omitempty"`
	Part2     *RenderedPart   `json:"part2,omitempty"`
	PDFPath   string          `json:"pdf_path,omitempty"`
	VideoURL  string          `json:"video_url,omitempty"`
	ReadPages []ReadAlongPage `json:"read_pages,omitempty"`
}

// PartByNo returns the rendered part for part_no 1 or 2, or nil.
func (j *Job) PartByNo(partNo int) *RenderedPart {
	switch partNo {
	case 1:
		return j.Part1
	case 2:
		return j.Part2
	}
	return nil
}

// JobView is the caller-facing projection of a Job: status plus presence
// flags, never the heavyweight payloads.
type JobView struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	HasPart1  bool      `json:"has_part1"`
	HasPart2  bool      `json:"has_part2"`
	HasPDF    bool      `json:"has_pdf"`
	HasRead   bool      `json:"has_read"`
	HasVideo  bool      `json:"has_video"`
}

// View builds the caller-facing projection.
func (j *Job) View() JobView {
	return JobView{
		JobID:     j.JobID,
		Status:    j.Status,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		HasPart1:  j.Part1 != nil,
		HasPart2:  j.Part2 != nil,
		HasPDF:    j.PDFPath != "",
		HasRead:   len(j.ReadPages) > 0,
		HasVideo:  j.VideoURL != "",
	}
}
