package services

import "testing"

func TestGetStyleFallsBackToDefault(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"manga_bw", "manga_bw"},
		{"", DefaultStyleID},
		{"  ", DefaultStyleID},
		{"no_such_style", DefaultStyleID},
		{"retro_american", "retro_american"},
	}
	for _, c := range cases {
		if got := GetStyle(c.in); got.ID != c.want {
			t.Errorf("GetStyle(%q).ID = %q, want %q", c.in, got.ID, c.want)
		}
	}
}

func TestNormalizeNuances(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty falls back to default", nil, []string{"adventure"}},
		{"unknown ids dropped", []string{"bogus", "comedy"}, []string{"comedy"}},
		{"all unknown falls back", []string{"bogus", "nope"}, []string{"adventure"}},
		{"duplicates removed", []string{"drama", "drama", "comedy"}, []string{"drama", "comedy"}},
		{
			"capped at five",
			[]string{"comedy", "adventure", "education", "drama", "mystery", "horror_light", "romance_light"},
			[]string{"comedy", "adventure", "education", "drama", "mystery"},
		},
		{"whitespace trimmed", []string{" comedy "}, []string{"comedy"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := NormalizeNuances(c.in)
			if len(got) != len(c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("got %v, want %v", got, c.want)
				}
			}
		})
	}
}

func TestNuanceLabelSummary(t *testing.T) {
	if got := NuanceLabelSummary([]string{"comedy", "mystery"}); got != "Komedi, Misteri" {
		t.Errorf("summary = %q", got)
	}
}
