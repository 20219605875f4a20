package renderer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/nanobanana/comicd/internal/grid"
	"github.com/nanobanana/comicd/internal/models"
)

func testScript() *models.Script {
	s := &models.Script{
		Global: models.ScriptGlobal{
			ComicTitle: "Petualangan Awan",
			Tagline:    "Langit bukan batas",
			Style:      models.StyleSpec{StyleID: "modern_clean", ArtStyle: "clean modern comic"},
			Nuances:    models.NuanceSpec{SelectedIDs: []string{"adventure"}, SelectedLabels: "Petualangan"},
			Characters: []models.Character{
				{Name: "Awan", Appearance: "anak kecil berambut ikal", Outfit: "jaket biru", Personality: "pemberani"},
			},
		},
	}
	for partNo := 1; partNo <= 2; partNo++ {
		part := models.Part{
			PartNo:      partNo,
			PartTitle:   fmt.Sprintf("Bagian %d", partNo),
			PartSummary: fmt.Sprintf("Ringkasan %d", partNo),
		}
		for n := 1; n <= 9; n++ {
			part.Panels = append(part.Panels, models.Panel{
				PanelNo:      n,
				PanelTitle:   fmt.Sprintf("Panel %d", n),
				Narration:    fmt.Sprintf("Cerita ke-%d.", n),
				Dialogues:    []string{"Awan: ayo!"},
				PanelContext: fmt.Sprintf("Awan berlari, adegan %d.", n),
			})
		}
		s.Parts = append(s.Parts, part)
	}
	return s
}

type fakeImageGen struct {
	gotPrompt string
	data      []byte
	err       error
}

func (f *fakeImageGen) GenerateGridImage(ctx context.Context, prompt string) ([]byte, error) {
	f.gotPrompt = prompt
	return f.data, f.err
}

type fakeBlobStore struct {
	mu       sync.Mutex
	uploads  []string
	failures map[string]bool
}

func (f *fakeBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[path] {
		return errors.New("upload refused")
	}
	f.uploads = append(f.uploads, path)
	return nil
}

func (f *fakeBlobStore) GetPublicURL(path string) string {
	return "https://blobs.test/" + path
}

func pagePNG(t *testing.T) []byte {
	t.Helper()
	data, err := grid.EncodePNG(image.NewRGBA(image.Rect(0, 0, 90, 135)))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRenderPartUploadsGridAndAllPanels(t *testing.T) {
	gen := &fakeImageGen{data: pagePNG(t)}
	blobs := &fakeBlobStore{}
	r := &Renderer{Images: gen, Blobs: blobs, ImageModel: "img-model"}

	rendered, err := r.RenderPart(context.Background(), "job-1", testScript(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if rendered.PartNo != 1 {
		t.Errorf("part_no = %d", rendered.PartNo)
	}
	if rendered.GridURL != "https://blobs.test/comics/grids/job-1/part1_grid.png" {
		t.Errorf("grid url = %q", rendered.GridURL)
	}
	if got := rendered.UploadedPanels(); got != 9 {
		t.Errorf("uploaded panels = %d, want 9", got)
	}
	if len(rendered.Panels) != 9 {
		t.Errorf("base64 panels = %d, want 9", len(rendered.Panels))
	}
	// URL order follows the 0-based row-major panel index.
	if rendered.PanelURLs[3] != "https://blobs.test/comics/panels/job-1/part1_panel3.png" {
		t.Errorf("panel url[3] = %q", rendered.PanelURLs[3])
	}
	// Every base64 slot decodes to a PNG.
	for i, b64 := range rendered.Panels {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			t.Fatalf("panel %d: bad base64: %v", i, err)
		}
		if _, err := grid.DecodePNG(data); err != nil {
			t.Fatalf("panel %d: bad png: %v", i, err)
		}
	}
}

func TestRenderPartDegradesFailedPanelUploads(t *testing.T) {
	gen := &fakeImageGen{data: pagePNG(t)}
	blobs := &fakeBlobStore{failures: map[string]bool{
		"comics/panels/job-1/part1_panel2.png": true,
		"comics/panels/job-1/part1_panel7.png": true,
	}}
	r := &Renderer{Images: gen, Blobs: blobs}

	rendered, err := r.RenderPart(context.Background(), "job-1", testScript(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := rendered.UploadedPanels(); got != 7 {
		t.Errorf("uploaded panels = %d, want 7", got)
	}
	if rendered.PanelURLs[2] != "" || rendered.PanelURLs[7] != "" {
		t.Error("failed slots must stay empty")
	}
	// Base64 fallback still complete.
	if len(rendered.Panels) != 9 {
		t.Errorf("base64 panels = %d, want 9", len(rendered.Panels))
	}
}

func TestRenderPartImageFailureIsFatal(t *testing.T) {
	gen := &fakeImageGen{err: errors.New("model said no")}
	r := &Renderer{Images: gen, Blobs: &fakeBlobStore{}}

	if _, err := r.RenderPart(context.Background(), "job-1", testScript(), 1); err == nil {
		t.Fatal("expected error when image generation fails")
	}
}

func TestRenderPartTwoCarriesContinuity(t *testing.T) {
	gen := &fakeImageGen{data: pagePNG(t)}
	r := &Renderer{Images: gen, Blobs: &fakeBlobStore{}}

	if _, err := r.RenderPart(context.Background(), "job-1", testScript(), 2); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gen.gotPrompt, "Previous part summary: Ringkasan 1") {
		t.Error("part 2 prompt should carry part 1 continuity summary")
	}
	if strings.Contains(gen.gotPrompt, "POSTER RULE") {
		t.Error("poster rule is part 1 only")
	}
}

func TestBuildImagePromptPosterRuleOnPartOne(t *testing.T) {
	s := testScript()
	prompt := BuildImagePrompt(s, s.PartByNo(1), "")
	for _, want := range []string{
		"POSTER RULE (ONLY for Part 1 Panel 1):",
		`"Petualangan Awan"`,
		"target aspect ratio 2:3",
		"PANEL 1:",
		"PANEL 9:",
		"- Awan: anak kecil berambut ikal; outfit: jaket biru; sifat: pemberani",
		"- adventure: Petualangan",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildImagePromptNoDialogueMarker(t *testing.T) {
	s := testScript()
	part := s.PartByNo(1)
	part.Panels[4].Dialogues = nil
	prompt := BuildImagePrompt(s, part, "")
	if !strings.Contains(prompt, "- (tanpa dialog)") {
		t.Error("panels without dialogue should carry the no-dialogue marker")
	}
}
