package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ReadAlongPage is one TTS-ready text unit aligned 1:1 with a panel.
// Pages are precomputed once at job creation so PDF export, video synthesis,
// and the read endpoint never re-derive pagination.
type ReadAlongPage struct {
	PageNo     int    `json:"page_no"` // 1..18
	PartNo     int    `json:"part_no"`
	PanelNo    int    `json:"panel_no"`
	PanelTitle string `json:"panel_title"`
	Text       string `json:"text"`     // labelled form, kept for debugging
	TTSText    string `json:"tts_text"` // clean spoken form
}

// Label patterns stripped from TTS text so the narrator never reads
// page/panel bookkeeping aloud.
var ttsStripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhalaman\s+\d+\b`),
	regexp.MustCompile(`(?i)\bbagian\s+\d+\b`),
	regexp.MustCompile(`(?i)\bpanel\s+\d+\b`),
	regexp.MustCompile(`(?i)\bnarasi\s*:\s*`),
	regexp.MustCompile(`(?i)\bdialog\s*:\s*`),
}

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\s*\n\s*`)
)

// CleanTTSText strips label patterns and collapses whitespace.
func CleanTTSText(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	for _, pat := range ttsStripPatterns {
		s = pat.ReplaceAllString(s, "")
	}
	s = spaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// BuildReadAlongPages derives the 18 read-along pages from a validated
// script: parts in order, panels by panel_no, page_no running 1..18. Page 1
// leads with the comic title so the narration opens with it.
func BuildReadAlongPages(script *Script) []ReadAlongPage {
	title := strings.TrimSpace(script.Global.ComicTitle)
	pages := make([]ReadAlongPage, 0, TotalPanels)

	pageNo := 1
	for partNo := 1; partNo <= PartCount; partNo++ {
		part := script.PartByNo(partNo)
		if part == nil {
			continue
		}
		for _, panel := range part.SortedPanels() {
			dialogues := NormalizeDialogues(panel.Dialogues)
			dlgJoin := strings.Join(dialogues, " ")

			var legacy []string
			if pageNo == 1 && title != "" {
				legacy = append(legacy, fmt.Sprintf("Judul komik: %s.", title))
			}
			legacy = append(legacy, fmt.Sprintf("Halaman %d.", pageNo))
			legacy = append(legacy, fmt.Sprintf("Bagian %d, panel %d.", partNo, panel.PanelNo))
			if t := strings.TrimSpace(panel.PanelTitle); t != "" {
				legacy = append(legacy, t+".")
			}
			if n := strings.TrimSpace(panel.Narration); n != "" {
				legacy = append(legacy, "Narasi: "+n)
			}
			if dlgJoin != "" {
				legacy = append(legacy, "Dialog: "+dlgJoin)
			}

			var tts []string
			if pageNo == 1 && title != "" {
				tts = append(tts, title+".")
			}
			if n := strings.TrimSpace(panel.Narration); n != "" {
				tts = append(tts, n)
			}
			if dlgJoin != "" {
				tts = append(tts, dlgJoin)
			}

			pages = append(pages, ReadAlongPage{
				PageNo:     pageNo,
				PartNo:     partNo,
				PanelNo:    panel.PanelNo,
				PanelTitle: strings.TrimSpace(panel.PanelTitle),
				Text:       strings.Join(legacy, " "),
				TTSText:    CleanTTSText(strings.Join(tts, " ")),
			})
			pageNo++
		}
	}

	return pages
}
