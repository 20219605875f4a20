// Package pdf exports a finished job's 18 panels as a one-panel-per-page PDF.
package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"log"
	"os"

	"github.com/jung-kurt/gofpdf"

	"github.com/nanobanana/comicd/internal/models"
)

// IncompletePanelsError means a part is missing panels, so the 18-page
// export cannot be built.
type IncompletePanelsError struct {
	PartNo int
	Got    int
}

func (e *IncompletePanelsError) Error() string {
	return fmt.Sprintf("part %d has %d panels, need %d for PDF export", e.PartNo, e.Got, models.PanelsPerPart)
}

// EnsurePDF writes the job's panel PDF to outputPath if it does not already
// exist, and returns the path. One page per panel, Part 1 pages first, each
// page sized to its panel image so nothing is scaled or cropped.
func EnsurePDF(job *models.Job, outputPath string) (string, error) {
	if job.Status != models.JobStatusDone {
		return "", fmt.Errorf("job %s is %s, PDF export requires done", job.JobID, job.Status)
	}

	parts := []*models.RenderedPart{job.Part1, job.Part2}
	for i, part := range parts {
		partNo := i + 1
		if part == nil {
			return "", &IncompletePanelsError{PartNo: partNo, Got: 0}
		}
		if len(part.Panels) != models.PanelsPerPart {
			return "", &IncompletePanelsError{PartNo: partNo, Got: len(part.Panels)}
		}
	}

	// Idempotent: a previous export for this job is reused as-is.
	if _, err := os.Stat(outputPath); err == nil {
		return outputPath, nil
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: 1, Ht: 1},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	pageIdx := 0
	for i, part := range parts {
		partNo := i + 1
		for panelIdx, b64 := range part.Panels {
			data, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return "", fmt.Errorf("part %d panel %d: decoding panel data: %w", partNo, panelIdx, err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				return "", fmt.Errorf("part %d panel %d: reading panel dimensions: %w", partNo, panelIdx, err)
			}

			w := float64(cfg.Width)
			h := float64(cfg.Height)
			doc.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})

			name := fmt.Sprintf("part%d_panel%d", partNo, panelIdx)
			doc.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
			doc.ImageOptions(name, 0, 0, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
			pageIdx++
		}
	}

	if err := doc.OutputFileAndClose(outputPath); err != nil {
		return "", fmt.Errorf("writing pdf: %w", err)
	}

	log.Printf("[PDF] Exported %d pages to %s", pageIdx, outputPath)
	return outputPath, nil
}
