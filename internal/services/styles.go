package services

import "strings"

// Style is one entry in the comic style catalog. The text model echoes the
// chosen entry back into the script's global style block; the image model
// receives it verbatim in the page prompt.
type Style struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	ArtStyle  string `json:"art_style"`
	ColorMood string `json:"color_mood"`
	LineStyle string `json:"line_style"`
	Camera    string `json:"camera"`
	Notes     string `json:"notes"`
}

const DefaultStyleID = "modern_clean"

// StyleCatalog is the fixed set of selectable visual styles, in display order.
var StyleCatalog = []Style{
	{
		ID:        "modern_clean",
		Label:     "Modern Clean (default)",
		ArtStyle:  "clean modern comic, crisp shapes, readable facial expressions",
		ColorMood: "bright balanced, cinematic warm highlights",
		LineStyle: "clean ink lines, sharp edges",
		Camera:    "simple cinematic framing, clear focal points",
		Notes:     "Best all-around, safe for phone readability.",
	},
	{
		ID:        "manga_bw",
		Label:     "Manga B&W",
		ArtStyle:  "Japanese manga style, expressive faces, dynamic speed lines, halftone shading",
		ColorMood: "black and white, high contrast, halftone dots",
		LineStyle: "fine manga inking, varied line weight",
		Camera:    "dramatic angles, action-ready panels",
		Notes:     "Monochrome look; strong emotion/action.",
	},
	{
		ID:        "pixar_3d",
		Label:     "3D Animated",
		ArtStyle:  "high-quality 3D animated film still, soft materials, appealing characters",
		ColorMood: "vibrant cinematic lighting, soft glow",
		LineStyle: "no ink outlines; 3D render edges",
		Camera:    "cinematic depth of field, friendly close-ups",
		Notes:     "Feels like movie frames; cute & family-friendly.",
	},
	{
		ID:        "watercolor_storybook",
		Label:     "Watercolor Storybook",
		ArtStyle:  "storybook illustration, watercolor wash, hand-painted feel",
		ColorMood: "pastel warm, soft gradients, paper texture",
		LineStyle: "gentle sketch lines, painterly edges",
		Camera:    "storybook framing, calm compositions",
		Notes:     "Soft, emotional, cocok buat kisah keluarga.",
	},
	{
		ID:        "retro_american",
		Label:     "Retro American (Golden Age)",
		ArtStyle:  "retro American comic, bold shapes, vintage printing vibe",
		ColorMood: "limited palette, slightly desaturated, print texture",
		LineStyle: "bold ink outlines, classic crosshatching",
		Camera:    "classic hero shots, strong silhouettes",
		Notes:     "Keren buat poster panel #1 yang klasik.",
	},
}

// GetStyle resolves a style id to its catalog entry, falling back to the
// default for unknown or empty ids.
func GetStyle(styleID string) Style {
	id := strings.TrimSpace(styleID)
	if id == "" {
		id = DefaultStyleID
	}
	for _, s := range StyleCatalog {
		if s.ID == id {
			return s
		}
	}
	for _, s := range StyleCatalog {
		if s.ID == DefaultStyleID {
			return s
		}
	}
	return StyleCatalog[0]
}

// Nuance is one selectable mood for the script.
type Nuance struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NuanceCatalog is the fixed set of selectable nuances, in display order.
var NuanceCatalog = []Nuance{
	{ID: "comedy", Label: "Komedi"},
	{ID: "adventure", Label: "Petualangan"},
	{ID: "education", Label: "Edukasi"},
	{ID: "drama", Label: "Drama"},
	{ID: "mystery", Label: "Misteri"},
	{ID: "horror_light", Label: "Horror Ringan"},
	{ID: "romance_light", Label: "Romantis Ringan"},
}

var defaultNuances = []string{"adventure"}

const maxNuances = 5

func nuanceByID(id string) (Nuance, bool) {
	for _, n := range NuanceCatalog {
		if n.ID == id {
			return n, true
		}
	}
	return Nuance{}, false
}

// NormalizeNuances keeps known ids in order, drops duplicates, caps the list
// at five, and falls back to the default when nothing valid remains.
func NormalizeNuances(ids []string) []string {
	var chosen []string
	seen := map[string]bool{}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		if _, ok := nuanceByID(id); !ok {
			continue
		}
		seen[id] = true
		chosen = append(chosen, id)
		if len(chosen) == maxNuances {
			break
		}
	}
	if len(chosen) == 0 {
		chosen = append(chosen, defaultNuances...)
	}
	return chosen
}

// NuanceLabelSummary joins the labels of the chosen nuances for display.
func NuanceLabelSummary(ids []string) string {
	var labels []string
	for _, id := range ids {
		if n, ok := nuanceByID(id); ok {
			labels = append(labels, n.Label)
		} else {
			labels = append(labels, id)
		}
	}
	return strings.Join(labels, ", ")
}

// nuanceRulesText builds the per-nuance writing rules injected into the
// script prompt.
func nuanceRulesText(ids []string) string {
	var rules []string
	for _, id := range ids {
		switch id {
		case "comedy":
			rules = append(rules, "- Sisipkan humor visual dan dialog singkat yang lucu (tanpa mengejek).")
		case "adventure":
			rules = append(rules, "- Pacing cepat, ada tantangan/tujuan kecil, rasa eksplorasi terasa.")
		case "education":
			rules = append(rules, "- Sisipkan pelajaran/fakta sederhana yang relevan di beberapa panel.")
		case "drama":
			rules = append(rules, "- Emosi & relasi terasa kuat; momen hening/haru diperjelas.")
		case "mystery":
			rules = append(rules, "- Tambahkan petunjuk kecil (clue) di panel_context; rasa misteri konsisten.")
		case "horror_light":
			rules = append(rules, "- Atmosfer spooky-cute, tanpa gore/trauma, tetap playful.")
		case "romance_light":
			rules = append(rules, "- Momen manis/awkward-cute, gesture halus, tetap family-friendly.")
		}
	}
	if len(rules) == 0 {
		rules = append(rules, "- Nuansa harus terasa di narasi, dialog, pacing, dan visual.")
	}
	return strings.Join(rules, "\n")
}
