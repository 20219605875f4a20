package renderer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/nanobanana/comicd/internal/grid"
	"github.com/nanobanana/comicd/internal/models"
	"github.com/nanobanana/comicd/internal/storage"
)

// maxConcurrentUploads caps parallel panel uploads per part.
const maxConcurrentUploads = 4

// ImageGenerator renders a full comic page from a prompt.
type ImageGenerator interface {
	GenerateGridImage(ctx context.Context, prompt string) ([]byte, error)
}

// BlobStore is the slice of the storage client the renderer needs.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	GetPublicURL(path string) string
}

// Renderer renders one part of a script into a RenderedPart.
type Renderer struct {
	Images     ImageGenerator
	Blobs      BlobStore
	ImageModel string

	// PreviewPath resolves the local grid preview file for a job part.
	// Empty result skips the local preview write.
	PreviewPath func(jobID string, partNo int) string
}

// RenderPart generates the part's 3x3 page, splits it into panels, and
// uploads everything. Panel upload failures degrade to empty URL slots; the
// base64 panel data always survives in the result. Image generation failure
// is fatal for the part.
func (r *Renderer) RenderPart(ctx context.Context, jobID string, script *models.Script, partNo int) (*models.RenderedPart, error) {
	part := script.PartByNo(partNo)
	if part == nil {
		return nil, fmt.Errorf("part_no %d not found in script", partNo)
	}

	prevSummary := ""
	if partNo == 2 {
		if prev := script.PartByNo(1); prev != nil {
			prevSummary = prev.ContinuitySummary()
		}
	}

	prompt := BuildImagePrompt(script, part, prevSummary)
	pageData, err := r.Images.GenerateGridImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("part %d: %w", partNo, err)
	}

	rendered := &models.RenderedPart{
		PartNo:      partNo,
		ImageModel:  r.ImageModel,
		AspectRatio: targetAspectRatio,
	}

	if r.PreviewPath != nil {
		if path := r.PreviewPath(jobID, partNo); path != "" {
			if err := os.WriteFile(path, pageData, 0o644); err != nil {
				log.Printf("[Renderer] WARNING: failed to write grid preview %s: %v", path, err)
			} else {
				rendered.GridPath = path
			}
		}
	}

	gridStoragePath := storage.GridPath(jobID, partNo)
	if err := r.Blobs.Upload(ctx, gridStoragePath, pageData, "image/png"); err != nil {
		log.Printf("[Renderer] WARNING: grid upload failed for part %d: %v", partNo, err)
	} else {
		rendered.GridURL = r.Blobs.GetPublicURL(gridStoragePath)
	}

	panels, err := grid.SplitPNG(pageData)
	if err != nil {
		return nil, fmt.Errorf("part %d: splitting grid: %w", partNo, err)
	}

	rendered.Panels = make([]string, len(panels))
	rendered.PanelURLs = make([]string, len(panels))
	for i, data := range panels {
		rendered.Panels[i] = base64.StdEncoding.EncodeToString(data)
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentUploads)
	for i := range panels {
		idx := i
		data := panels[i]
		g.Go(func() error {
			path := storage.PanelPath(jobID, partNo, idx)
			if err := r.Blobs.Upload(ctx, path, data, "image/png"); err != nil {
				// Degraded slot: URL stays empty, base64 copy remains.
				log.Printf("[Renderer] WARNING: panel upload failed (part %d, panel idx %d): %v", partNo, idx, err)
				return nil
			}
			rendered.PanelURLs[idx] = r.Blobs.GetPublicURL(path)
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("[Renderer] Part %d rendered: %d/%d panels uploaded", partNo, rendered.UploadedPanels(), len(panels))
	return rendered, nil
}
