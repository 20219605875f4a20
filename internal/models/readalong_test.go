package models

import (
	"strings"
	"testing"
)

func TestBuildReadAlongPagesOrdering(t *testing.T) {
	pages := BuildReadAlongPages(validScript())
	if len(pages) != TotalPanels {
		t.Fatalf("expected %d pages, got %d", TotalPanels, len(pages))
	}
	for i, pg := range pages {
		if pg.PageNo != i+1 {
			t.Errorf("page %d: page_no = %d, want %d", i, pg.PageNo, i+1)
		}
		wantPart := 1
		wantPanel := i + 1
		if i >= PanelsPerPart {
			wantPart = 2
			wantPanel = i - PanelsPerPart + 1
		}
		if pg.PartNo != wantPart || pg.PanelNo != wantPanel {
			t.Errorf("page %d: part/panel = %d/%d, want %d/%d", pg.PageNo, pg.PartNo, pg.PanelNo, wantPart, wantPanel)
		}
	}
}

func TestBuildReadAlongPagesTitleOnFirstPageOnly(t *testing.T) {
	s := validScript()
	pages := BuildReadAlongPages(s)

	if !strings.HasPrefix(pages[0].Text, "Judul komik: "+s.Global.ComicTitle+".") {
		t.Errorf("page 1 legacy text should lead with the title, got %q", pages[0].Text)
	}
	if !strings.HasPrefix(pages[0].TTSText, s.Global.ComicTitle+".") {
		t.Errorf("page 1 tts text should lead with the title, got %q", pages[0].TTSText)
	}
	for _, pg := range pages[1:] {
		if strings.Contains(pg.TTSText, s.Global.ComicTitle) {
			t.Errorf("page %d tts text repeats the title: %q", pg.PageNo, pg.TTSText)
		}
	}
}

func TestBuildReadAlongPagesTTSCarriesNarrationAndDialogues(t *testing.T) {
	s := validScript()
	s.Parts[0].Panels[2].Narration = "Robo menatap kanvas kosong."
	s.Parts[0].Panels[2].Dialogues = []string{"Robo: aku bisa!", "Ibu: coba saja."}
	pages := BuildReadAlongPages(s)

	pg := pages[2]
	if !strings.Contains(pg.TTSText, "Robo menatap kanvas kosong.") {
		t.Errorf("tts text missing narration: %q", pg.TTSText)
	}
	if !strings.Contains(pg.TTSText, "aku bisa!") || !strings.Contains(pg.TTSText, "coba saja.") {
		t.Errorf("tts text missing dialogues: %q", pg.TTSText)
	}
	if strings.Contains(pg.TTSText, "Narasi:") || strings.Contains(pg.TTSText, "Dialog:") {
		t.Errorf("tts text must not carry labels: %q", pg.TTSText)
	}
}

func TestCleanTTSText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Halaman 3. Bagian 1, panel 3. Narasi: Robo tersenyum.", ". , . Robo tersenyum."},
		{"Dialog: halo dunia", "halo dunia"},
		{"  banyak    spasi  ", "banyak spasi"},
		{"", ""},
		{"Tanpa label sama sekali.", "Tanpa label sama sekali."},
	}
	for _, c := range cases {
		if got := CleanTTSText(c.in); got != c.want {
			t.Errorf("CleanTTSText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
