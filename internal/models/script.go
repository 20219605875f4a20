package models

import (
	"fmt"
	"sort"
	"strings"
)

// Structural constants for the two-page comic format.
const (
	PartCount     = 2
	PanelsPerPart = 9
	TotalPanels   = PartCount * PanelsPerPart
)

// StyleSpec is the visual style block carried inside a script's global
// metadata. The text model echoes back the style catalog entry it was given.
type StyleSpec struct {
	StyleID    string `json:"style_id"`
	StyleLabel string `json:"style_label"`
	ArtStyle   string `json:"art_style"`
	ColorMood  string `json:"color_mood"`
	LineStyle  string `json:"line_style"`
	Camera     string `json:"camera"`
}

// NuanceSpec records which mood/nuance ids were applied to the script.
type NuanceSpec struct {
	SelectedIDs    []string `json:"selected_ids"`
	SelectedLabels string   `json:"selected_labels"`
}

type Character struct {
	Name        string `json:"name"`
	Appearance  string `json:"appearance"`
	Outfit      string `json:"outfit"`
	Personality string `json:"personality"`
}

// ScriptGlobal holds the metadata shared by both parts: title, tagline,
// style, nuances, and the character bible used for consistency.
type ScriptGlobal struct {
	ComicTitle string      `json:"comic_title"`
	Tagline    string      `json:"tagline"`
	Style      StyleSpec   `json:"style"`
	Nuances    NuanceSpec  `json:"nuances"`
	Characters []Character `json:"characters"`
}

// Panel is the script-level unit for one grid cell: what the narrator says,
// who speaks, and what the panel must show.
type Panel struct {
	PanelNo      int      `json:"panel_no"`
	PanelTitle   string   `json:"panel_title"`
	Narration    string   `json:"narration"`
	Dialogues    []string `json:"dialogues"`
	PanelContext string   `json:"panel_context"`
}

type Part struct {
	PartNo      int     `json:"part_no"`
	PartTitle   string  `json:"part_title"`
	PartSummary string  `json:"part_summary"`
	Panels      []Panel `json:"panels"`
}

// Script is the validated two-part, 18-panel blueprint of the comic.
// It is immutable once Validate has passed — downstream stages never
// re-check shape.
type Script struct {
	Global ScriptGlobal `json:"global"`
	Parts  []Part       `json:"parts"`
}

// NormalizeDialogues trims entries, drops empties, and caps the list at two
// lines. A nil slice normalizes to an empty one.
func NormalizeDialogues(dialogues []string) []string {
	out := make([]string, 0, 2)
	for _, d := range dialogues {
		s := strings.TrimSpace(d)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == 2 {
			break
		}
	}
	return out
}

// Validate enforces the script shape contract: exactly 2 parts with part_no
// 1 and 2, exactly 9 panels per part with panel_no forming a permutation of
// 1..9, and every panel carrying a title, narration, and visual context.
// Dialogues are normalized in place (max 2 non-empty lines).
func (s *Script) Validate() error {
	if len(s.Parts) != PartCount {
		return fmt.Errorf("script must contain exactly %d parts, got %d", PartCount, len(s.Parts))
	}

	seen := map[int]bool{}
	for i := range s.Parts {
		part := &s.Parts[i]
		if part.PartNo != 1 && part.PartNo != 2 {
			return fmt.Errorf("part %d: part_no must be 1 or 2, got %d", i, part.PartNo)
		}
		if seen[part.PartNo] {
			return fmt.Errorf("duplicate part_no %d", part.PartNo)
		}
		seen[part.PartNo] = true

		if len(part.Panels) != PanelsPerPart {
			return fmt.Errorf("part %d must have exactly %d panels, got %d", part.PartNo, PanelsPerPart, len(part.Panels))
		}

		nums := make([]int, 0, PanelsPerPart)
		for j := range part.Panels {
			p := &part.Panels[j]
			nums = append(nums, p.PanelNo)

			if strings.TrimSpace(p.PanelTitle) == "" {
				return fmt.Errorf("part %d panel %d: missing panel_title", part.PartNo, p.PanelNo)
			}
			if strings.TrimSpace(p.Narration) == "" {
				return fmt.Errorf("part %d panel %d: missing narration", part.PartNo, p.PanelNo)
			}
			if strings.TrimSpace(p.PanelContext) == "" {
				return fmt.Errorf("part %d panel %d: missing panel_context", part.PartNo, p.PanelNo)
			}
			p.Dialogues = NormalizeDialogues(p.Dialogues)
		}

		sorted := append([]int(nil), nums...)
		sort.Ints(sorted)
		for k, n := range sorted {
			if n != k+1 {
				return fmt.Errorf("part %d: panel_no must be a permutation of 1..%d, got %v", part.PartNo, PanelsPerPart, nums)
			}
		}
	}

	return nil
}

// PartByNo returns the part with the given part_no, or nil.
func (s *Script) PartByNo(partNo int) *Part {
	for i := range s.Parts {
		if s.Parts[i].PartNo == partNo {
			return &s.Parts[i]
		}
	}
	return nil
}

// SortedPanels returns the part's panels ordered by panel_no. This is the
// canonical reading order every downstream consumer follows.
func (p *Part) SortedPanels() []Panel {
	panels := append([]Panel(nil), p.Panels...)
	sort.Slice(panels, func(i, j int) bool {
		return panels[i].PanelNo < panels[j].PanelNo
	})
	return panels
}

// panelNoForIndex maps a 0-based row-major split index to the 1-based
// panel_no. The two numberings are a bijection; PDF page order, video panel
// order, and read-along page order all follow it.
func panelNoForIndex(idx int) int {
	return idx + 1
}

// indexForPanelNo is the inverse of panelNoForIndex.
func indexForPanelNo(panelNo int) int {
	return panelNo - 1
}

// ContinuitySummary condenses a part into a short free-text summary used to
// keep Part 2's image generation visually consistent with Part 1: the part
// summary plus up to six panel contexts, capped at 1100 characters.
func (p *Part) ContinuitySummary() string {
	var out []string
	if s := strings.TrimSpace(p.PartSummary); s != "" {
		out = append(out, s)
	}

	var contexts []string
	for _, panel := range p.SortedPanels() {
		if c := strings.TrimSpace(panel.PanelContext); c != "" {
			contexts = append(contexts, c)
		}
		if len(contexts) == 6 {
			break
		}
	}
	if len(contexts) > 0 {
		out = append(out, "Konteks visual penting: "+strings.Join(contexts, " | "))
	}

	summary := strings.Join(out, " ")
	if len(summary) > 1100 {
		summary = summary[:1100]
	}
	return summary
}
