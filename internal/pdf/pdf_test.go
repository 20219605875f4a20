package pdf

import (
	"encoding/base64"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/nanobanana/comicd/internal/grid"
	"github.com/nanobanana/comicd/internal/models"
)

func panelB64(t *testing.T, w, h int) string {
	t.Helper()
	data, err := grid.EncodePNG(image.NewRGBA(image.Rect(0, 0, w, h)))
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func doneJob(t *testing.T) *models.Job {
	t.Helper()
	mkPart := func(partNo int) *models.RenderedPart {
		p := &models.RenderedPart{PartNo: partNo}
		for i := 0; i < models.PanelsPerPart; i++ {
			p.Panels = append(p.Panels, panelB64(t, 30, 45))
			p.PanelURLs = append(p.PanelURLs, "")
		}
		return p
	}
	return &models.Job{
		JobID:  "j1",
		Status: models.JobStatusDone,
		Part1:  mkPart(1),
		Part2:  mkPart(2),
	}
}

func TestEnsurePDFWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "comic.pdf")
	path, err := EnsurePDF(doneJob(t), out)
	if err != nil {
		t.Fatal(err)
	}
	if path != out {
		t.Errorf("path = %q, want %q", path, out)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("pdf file is empty")
	}
}

func TestEnsurePDFIsIdempotent(t *testing.T) {
	out := filepath.Join(t.TempDir(), "comic.pdf")
	job := doneJob(t)
	if _, err := EnsurePDF(job, out); err != nil {
		t.Fatal(err)
	}
	first, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := EnsurePDF(job, out); err != nil {
		t.Fatal(err)
	}
	second, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if !first.ModTime().Equal(second.ModTime()) {
		t.Error("existing pdf should not be rewritten")
	}
}

func TestEnsurePDFRequiresDoneStatus(t *testing.T) {
	job := doneJob(t)
	job.Status = models.JobStatusRendering
	if _, err := EnsurePDF(job, filepath.Join(t.TempDir(), "x.pdf")); err == nil {
		t.Fatal("expected error for non-done job")
	}
}

func TestEnsurePDFRejectsIncompleteParts(t *testing.T) {
	job := doneJob(t)
	job.Part2.Panels = job.Part2.Panels[:5]
	_, err := EnsurePDF(job, filepath.Join(t.TempDir(), "x.pdf"))
	var incomplete *IncompletePanelsError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompletePanelsError", err)
	}
	if incomplete.PartNo != 2 || incomplete.Got != 5 {
		t.Errorf("error details = %+v", incomplete)
	}
}

func TestEnsurePDFRejectsMissingPart(t *testing.T) {
	job := doneJob(t)
	job.Part1 = nil
	_, err := EnsurePDF(job, filepath.Join(t.TempDir(), "x.pdf"))
	var incomplete *IncompletePanelsError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompletePanelsError", err)
	}
	if incomplete.PartNo != 1 {
		t.Errorf("part = %d, want 1", incomplete.PartNo)
	}
}
