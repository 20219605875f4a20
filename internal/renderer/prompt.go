// Package renderer turns one script part into a rendered 3x3 page: prompt
// build, image generation, split, and parallel panel upload.
package renderer

import (
	"fmt"
	"strings"

	"github.com/nanobanana/comicd/internal/models"
	"github.com/nanobanana/comicd/internal/services"
)

// targetAspectRatio is the portrait page shape the image model is asked for.
const targetAspectRatio = "2:3"

// BuildImagePrompt builds the full-page prompt for one part. The prompt
// carries the complete panel text because the model renders captions and
// speech bubbles directly into the image.
func BuildImagePrompt(script *models.Script, part *models.Part, prevPartSummary string) string {
	style := script.Global.Style

	comicTitle := strings.TrimSpace(script.Global.ComicTitle)
	if comicTitle == "" {
		comicTitle = "Judul Komik"
	}
	tagline := strings.TrimSpace(script.Global.Tagline)

	var b strings.Builder

	b.WriteString("Create ONE high-quality COMIC PAGE as a portrait phone-friendly image.\n\n")

	fmt.Fprintf(&b, `LAYOUT / CANVAS (CRITICAL):
- Single image canvas MUST be portrait and phone-friendly (target aspect ratio %s, like 1080x1620 or 1024x1536).
- Draw a perfect 3x3 grid of 9 equal panels.
- Thick straight white gutters.
- Each panel must be large and readable on a phone in portrait.
- Keep compositions simple, strong focal points.

`, targetAspectRatio)

	fmt.Fprintf(&b, `STYLE (consistent):
- style_id: %s
- art_style: %s
- color_mood: %s
- line_style: %s
- camera: %s

`, style.StyleID,
		defaultIfEmpty(style.ArtStyle, "clean modern comic"),
		defaultIfEmpty(style.ColorMood, "cinematic warm"),
		defaultIfEmpty(style.LineStyle, "clean ink lines, sharp"),
		defaultIfEmpty(style.Camera, "simple cinematic framing"))

	b.WriteString(nuanceVisualRules(script.Global.Nuances.SelectedIDs))
	b.WriteString("\n\n")

	b.WriteString("CHARACTER BIBLE (keep consistent across all panels):\n")
	b.WriteString(characterBible(script.Global.Characters))
	b.WriteString("\n\n")

	if prevPartSummary != "" {
		fmt.Fprintf(&b, "STORY CONTINUITY:\nPrevious part summary: %s\n\n", prevPartSummary)
	} else {
		b.WriteString("STORY CONTINUITY:\nPrevious part summary: (first part)\n\n")
	}

	fmt.Fprintf(&b, "TARGET PART:\nPart %d: %s\nSummary: %s\n\n", part.PartNo, part.PartTitle, part.PartSummary)

	if part.PartNo == 1 {
		fmt.Fprintf(&b, `POSTER RULE (ONLY for Part 1 Panel 1):
- It MUST look like a movie poster inside the top-left panel (panel 1).
- Render big readable title text: "%s"
- Render smaller readable tagline text: "%s" (if empty, invent a short tagline).
- Typography: bold sans-serif, high contrast, clean, no gibberish.

`, comicTitle, tagline)
	}

	b.WriteString(`TEXT RULES (CRITICAL):
- Render all written text in clear Indonesian, perfectly readable.
- Use large font sizes for phone portrait viewing.
- Use high-contrast caption boxes and speech bubbles.
- Avoid distorted letters, random symbols, or unreadable typography.
- Do NOT place text over faces; keep safe margins.
- For each panel:
  * 1 narration caption box (bottom or top) using the provided NARASI.
  * up to 2 speech bubbles using the provided DIALOG lines.

`)

	b.WriteString("PANELS (reading order left-to-right, top-to-bottom):\n")
	for _, panel := range part.SortedPanels() {
		b.WriteString(panelBlock(panel))
		b.WriteString("\n")
	}

	b.WriteString(`
QUALITY:
- Sharp, clean, no blur/no noise.
- Perfect grid alignment.
- Stable character faces/outfits across all panels.`)

	return strings.TrimSpace(b.String())
}

func panelBlock(panel models.Panel) string {
	dialogues := models.NormalizeDialogues(panel.Dialogues)
	dblock := "- (tanpa dialog)"
	if len(dialogues) > 0 {
		var lines []string
		for _, d := range dialogues {
			lines = append(lines, "- "+d)
		}
		dblock = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`PANEL %d: %s
VISUAL: %s
NARASI (caption 1-2 kalimat, bahasa Indonesia): %s
DIALOG (speech bubbles, max 2):
%s
`, panel.PanelNo, strings.TrimSpace(panel.PanelTitle), strings.TrimSpace(panel.PanelContext),
		strings.TrimSpace(panel.Narration), dblock)
}

func characterBible(characters []models.Character) string {
	var lines []string
	for i, c := range characters {
		if i == 4 {
			break
		}
		name := c.Name
		if name == "" {
			name = "Karakter"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s; outfit: %s; sifat: %s", name, c.Appearance, c.Outfit, c.Personality))
	}
	if len(lines) == 0 {
		return "- Buat karakter utama konsisten."
	}
	return strings.Join(lines, "\n")
}

func nuanceVisualRules(selectedIDs []string) string {
	chosen := services.NormalizeNuances(selectedIDs)

	lines := []string{"NUANCE VISUAL + WRITING RULES (apply strongly):"}
	for _, id := range chosen {
		label := id
		for _, n := range services.NuanceCatalog {
			if n.ID == id {
				label = n.Label
				break
			}
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", id, label))
	}
	lines = append(lines, "", "Enforce the selected nuance through: facial expressions, pacing, props, background mood, and wording in captions/bubbles.")
	return strings.Join(lines, "\n")
}

func defaultIfEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
