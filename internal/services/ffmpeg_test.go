package services

import (
	"fmt"
	"strings"
	"testing"
)

func TestPatternForPanelCycles(t *testing.T) {
	if PatternForPanel(0).Name != PatternForPanel(5).Name {
		t.Error("pattern cycle should repeat every 5 panels")
	}
	if PatternForPanel(0).Name == PatternForPanel(1).Name {
		t.Error("adjacent panels should get different patterns")
	}
	// All 18 panels map to a defined pattern.
	for i := 0; i < 18; i++ {
		if PatternForPanel(i).Name == "" {
			t.Errorf("panel %d has no pattern", i)
		}
	}
}

func TestBuildKenBurnsFilterShape(t *testing.T) {
	f := BuildKenBurnsFilter(0, 4.0, 720, 1280)
	for _, want := range []string{"zoompan=", "s=720x1280", "fps=30", fmt.Sprintf("d=%d", 4*30)} {
		if !strings.Contains(f, want) {
			t.Errorf("filter missing %q: %s", want, f)
		}
	}
	// Time-based expressions so motion completes over the clip duration.
	if !strings.Contains(f, "time/4") {
		t.Errorf("filter should normalize by duration: %s", f)
	}
}

func TestBuildXfadeGraphOffsets(t *testing.T) {
	durations := []float64{4.0, 5.0, 3.5}
	graph, finalLabel := BuildXfadeGraph(durations, 0.5)

	// First offset: d0 - T. Second: d0 - T + d1 - T.
	if !strings.Contains(graph, "offset=3.500[v01]") {
		t.Errorf("first offset wrong: %s", graph)
	}
	if !strings.Contains(graph, "offset=8.000[v0102]") {
		t.Errorf("second offset wrong: %s", graph)
	}
	if finalLabel != "v0102" {
		t.Errorf("final label = %q, want v0102", finalLabel)
	}
	if got := strings.Count(graph, "xfade"); got != 2 {
		t.Errorf("xfade count = %d, want 2", got)
	}
}

func TestBuildXfadeGraphTwoClips(t *testing.T) {
	graph, finalLabel := BuildXfadeGraph([]float64{4.0, 4.0}, 0.5)
	if finalLabel != "v01" {
		t.Errorf("final label = %q, want v01", finalLabel)
	}
	if !strings.HasPrefix(graph, "[0][1]xfade=") {
		t.Errorf("graph = %s", graph)
	}
}

func TestBuildXfadeGraphSingleClip(t *testing.T) {
	graph, finalLabel := BuildXfadeGraph([]float64{4.0}, 0.5)
	if graph != "" || finalLabel != "" {
		t.Error("single clip needs no transition graph")
	}
}

func TestConcatListPathIsPerOutput(t *testing.T) {
	// Two builds running at once must not share a list file; the list lives
	// next to its own output.
	a := concatListPath("/work/job-a/concatenated.mp4")
	b := concatListPath("/work/job-b/concatenated.mp4")
	if a == b {
		t.Fatalf("list paths collide: %q", a)
	}
	if !strings.HasPrefix(a, "/work/job-a/") {
		t.Errorf("list path %q should sit in the build's work dir", a)
	}
	// Video and narration outputs of the same build get separate lists too.
	if concatListPath("/work/j/concatenated.mp4") == concatListPath("/work/j/narration_full.mp3") {
		t.Error("clip and audio lists must not collide")
	}
}

func TestWrapSSMLEscapes(t *testing.T) {
	got := wrapSSML(`Dia bilang "halo" <sekarang> & pergi`)
	if !strings.HasPrefix(got, "<speak><p>") || !strings.HasSuffix(got, "</p></speak>") {
		t.Errorf("ssml wrapper wrong: %s", got)
	}
	for _, banned := range []string{`"halo"`, "<sekarang>", "& pergi"} {
		if strings.Contains(got, banned) {
			t.Errorf("unescaped content %q in %s", banned, got)
		}
	}
}
