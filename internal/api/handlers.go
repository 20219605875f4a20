package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nanobanana/comicd/internal/jobstore"
	"github.com/nanobanana/comicd/internal/models"
	"github.com/nanobanana/comicd/internal/pdf"
	"github.com/nanobanana/comicd/internal/services"
	"github.com/nanobanana/comicd/internal/worker"
)

// ScriptGenerator is the script service surface the handlers use.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, story, styleID string, nuances []string) (*models.Script, error)
}

// VideoBuilder is the video service surface the handlers use.
type VideoBuilder interface {
	BuildVideo(ctx context.Context, job *models.Job, outputPath string) (string, error)
}

type Handler struct {
	scripts ScriptGenerator
	orch    *worker.Orchestrator
	store   *jobstore.Store
	files   *jobstore.FileStore
	video   VideoBuilder
}

func NewHandler(scripts ScriptGenerator, orch *worker.Orchestrator, store *jobstore.Store, files *jobstore.FileStore, video VideoBuilder) *Handler {
	return &Handler{
		scripts: scripts,
		orch:    orch,
		store:   store,
		files:   files,
		video:   video,
	}
}

// ListStyles handles GET /v1/styles
func (h *Handler) ListStyles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"styles":  services.StyleCatalog,
		"nuances": services.NuanceCatalog,
	})
}

// GenerateScript handles POST /v1/script
func (h *Handler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Story   string   `json:"story"`
		StyleID string   `json:"style_id"`
		Nuances []string `json:"nuances"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Story == "" {
		respondError(w, http.StatusBadRequest, "Story is required")
		return
	}

	script, err := h.scripts.GenerateScript(r.Context(), req.Story, req.StyleID, req.Nuances)
	if err != nil {
		var genErr *services.GenerationError
		if errors.As(err, &genErr) {
			respondError(w, http.StatusBadGateway, genErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Script generation failed")
		return
	}

	respondJSON(w, http.StatusOK, script)
}

// StartRender handles POST /v1/render
func (h *Handler) StartRender(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script *models.Script `json:"script"`
		JobID  string         `json:"job_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Script == nil {
		respondError(w, http.StatusBadRequest, "Script is required")
		return
	}

	jobID, err := h.orch.StartRenderJob(req.Script, req.JobID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(models.JobStatusQueued),
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, job.View())
}

// GetReadPages handles GET /v1/jobs/{id}/read
func (h *Handler) GetReadPages(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	if len(job.ReadPages) == 0 {
		respondError(w, http.StatusNotFound, "Job has no read-along pages")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": job.JobID,
		"pages":  job.ReadPages,
	})
}

// GetPDF handles GET /v1/jobs/{id}/pdf
func (h *Handler) GetPDF(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	path, err := pdf.EnsurePDF(job, h.files.PDFPath(job.JobID))
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	if job.PDFPath != path {
		if err := h.store.Update(job.JobID, func(j *models.Job) {
			j.PDFPath = path
		}); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to record PDF path")
			return
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// GetPanel handles GET /v1/jobs/{id}/panels/{part}/{idx}
// Serves the panel PNG from the job's embedded copy, so it works even when
// the blob upload for that panel failed.
func (h *Handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	partNo, err1 := strconv.Atoi(chi.URLParam(r, "part"))
	idx, err2 := strconv.Atoi(chi.URLParam(r, "idx"))
	if err1 != nil || err2 != nil {
		respondError(w, http.StatusBadRequest, "Invalid part or panel index")
		return
	}

	part := job.PartByNo(partNo)
	if part == nil || idx < 0 || idx >= len(part.Panels) {
		respondError(w, http.StatusNotFound, "Panel not found")
		return
	}

	data, err := base64.StdEncoding.DecodeString(part.Panels[idx])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Corrupt panel data")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GenerateVideo handles POST /v1/jobs/{id}/video
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	// Idempotent: an already-built video is returned as-is.
	if job.VideoURL != "" {
		respondJSON(w, http.StatusOK, map[string]string{
			"job_id":    job.JobID,
			"video_url": job.VideoURL,
		})
		return
	}

	url, err := h.video.BuildVideo(r.Context(), job, h.files.VideoPath(job.JobID))
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	if err := h.store.Update(job.JobID, func(j *models.Job) {
		j.VideoURL = url
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to record video URL")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"job_id":    job.JobID,
		"video_url": url,
	})
}

func (h *Handler) lookupJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	jobID := chi.URLParam(r, "id")
	job, err := h.store.Get(jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Job not found")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "Failed to load job")
		return nil, false
	}
	return job, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
