package video

import (
	"math"
	"strings"
	"testing"

	"github.com/nanobanana/comicd/internal/models"
)

func TestReformatDialogue(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Robo: aku bisa terbang", "aku bisa terbang, ucap Robo."},
		{"Ibu: hati-hati.", "hati-hati, ucap Ibu."},
		{"teriakan tanpa nama", "teriakan tanpa nama"},
		{"  Budi:   jangan lupa  ", "jangan lupa, ucap Budi."},
		{": teks tanpa nama", ": teks tanpa nama"},
		{"Nama:", "Nama:"},
	}
	for _, c := range cases {
		if got := ReformatDialogue(c.in); got != c.want {
			t.Errorf("ReformatDialogue(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestComputePanelDuration(t *testing.T) {
	// Short audio is floored at the minimum.
	if got := ComputePanelDuration(1.0); got != MinPanelDuration {
		t.Errorf("short audio duration = %g, want %g", got, MinPanelDuration)
	}
	// Longer audio: audio + transition + buffer, no upper cap.
	if got := ComputePanelDuration(10.0); math.Abs(got-11.0) > 1e-9 {
		t.Errorf("long audio duration = %g, want 11.0", got)
	}
	if got := ComputePanelDuration(30.0); math.Abs(got-31.0) > 1e-9 {
		t.Errorf("very long audio must not be capped, got %g", got)
	}
}

func TestNarrationTextJoinsNarrationAndDialogues(t *testing.T) {
	panel := models.Panel{
		PanelNo:   3,
		Narration: "Robo menatap langit.",
		Dialogues: []string{"Robo: aku siap", "Ibu: pergilah"},
	}
	got := NarrationText(panel)
	want := "Robo menatap langit. aku siap, ucap Robo. pergilah, ucap Ibu."
	if got != want {
		t.Errorf("NarrationText = %q, want %q", got, want)
	}
}

func TestNarrationTextStripsLabels(t *testing.T) {
	panel := models.Panel{
		Narration: "Narasi: Halaman 3 dimulai di pasar.",
	}
	got := NarrationText(panel)
	if got == "" {
		t.Fatal("narration should survive label stripping")
	}
	lower := strings.ToLower(got)
	for _, banned := range []string{"narasi:", "halaman 3"} {
		if strings.Contains(lower, banned) {
			t.Errorf("label %q leaked into %q", banned, got)
		}
	}
}

func TestNarrationTextEmptyPanel(t *testing.T) {
	if got := NarrationText(models.Panel{}); got != "" {
		t.Errorf("empty panel should yield empty text, got %q", got)
	}
}
