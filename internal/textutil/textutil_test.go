package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cover.jpg", "cover.jpg"},
		{"../../etc/passwd", "-..-etc-passwd"},
		{"a:b*c?.png", "a-b-c.png"},
		{"  .hidden ", "hidden"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cdn.myanimelist.net/images/anime/4/19644l.jpg", "19644l.jpg"},
		{"https://s4.anilist.co/file/banner.jpg?v=2#top", "banner.jpg"},
		{"https://example.com", ""},
		{"https://example.com/", ""},
	}
	for _, tt := range tests {
		if got := FileNameFromURL(tt.in); got != tt.want {
			t.Errorf("FileNameFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("Anime Character"); got != "anime_character" {
		t.Fatalf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("SanitizeToken(blank) = %q", got)
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  Ｃｏｗｂｏｙ   Bebop \n"); got != "Cowboy Bebop" {
		t.Fatalf("NormalizeQuery = %q", got)
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"finished_airing":  "Finished Airing",
		"tv":               "TV",
		"ova":              "OVA",
		"":                 "",
		"NOT_YET_RELEASED": "Not Yet Released",
	}
	for in, want := range tests {
		if got := Humanize(in); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("Cowboy Bebop", "cowboy bebop"); got != 1 {
		t.Fatalf("identical titles scored %v", got)
	}
	if got := Similarity("Cowboy Bebop", "Trigun"); got != 0 {
		t.Fatalf("disjoint titles scored %v", got)
	}
	partial := Similarity("Cowboy Bebop", "Cowboy Bebop: The Movie")
	if partial <= 0 || partial >= 1 {
		t.Fatalf("partial overlap scored %v", partial)
	}
	if Similarity("", "anything") != 0 {
		t.Fatal("empty text should score 0")
	}
}

func TestBestMatch(t *testing.T) {
	idx, score := BestMatch("bebop", [][]string{
		{"Trigun"},
		{"Cowboy Bebop: Tengoku no Tobira", "Cowboy Bebop: The Movie"},
		{"Bebop"},
	})
	if idx != 2 || score != 1 {
		t.Fatalf("BestMatch = %d, %v", idx, score)
	}
	if idx, _ := BestMatch("x", nil); idx != -1 {
		t.Fatalf("expected -1 for no candidates, got %d", idx)
	}
}
