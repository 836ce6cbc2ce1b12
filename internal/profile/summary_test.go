package profile

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(Info{}, EmptyExtended()); got != "No profile details available." {
		t.Errorf("Summarize(empty) = %q", got)
	}
}

func TestSummarize_Full(t *testing.T) {
	info := Info{Name: "Ada Lovelace", Title: "Analyst", Company: "Analytical Engines"}
	ext := EmptyExtended()
	ext.About = "Writes programs for machines that do not exist yet."
	ext.Experiences = append(ext.Experiences, Experience{Title: "Analyst", Company: "Babbage & Co", DateRange: "1842 - 1843"})
	ext.Education = append(ext.Education, Education{School: "Home tutoring", FieldOfStudy: "Mathematics"})
	ext.Awards = append(ext.Awards, Award{Name: "First programmer"})

	got := Summarize(info, ext)
	for _, want := range []string{
		"Ada Lovelace, Analyst at Analytical Engines.",
		"About: Writes programs",
		"Experience: Analyst at Babbage & Co (1842 - 1843).",
		"Education: Mathematics, Home tutoring.",
		"Awards: First programmer.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q: %s", want, got)
		}
	}
}

func TestSummarize_TokenBudget(t *testing.T) {
	ext := EmptyExtended()
	for i := 0; i < 50; i++ {
		ext.RecentPosts = append(ext.RecentPosts, Post{Text: strings.Repeat("very specific detail ", 20)})
	}
	got := Summarize(Info{Name: "X"}, ext)
	if len(got) > maxSummaryChars {
		t.Errorf("summary too long: %d chars", len(got))
	}
}

func TestExtendedEncodesEmptyArrays(t *testing.T) {
	var ext Extended
	ext.Normalize()
	b, err := json.Marshal(ext)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"about":"","experiences":[],"education":[],"awards":[],"recentPosts":[]}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestFirstName(t *testing.T) {
	cases := map[string]string{"Ada Lovelace": "Ada", "  John  Smith ": "John", "": ""}
	for in, want := range cases {
		if got := (Info{Name: in}).FirstName(); got != want {
			t.Errorf("FirstName(%q) = %q, want %q", in, got, want)
		}
	}
}
