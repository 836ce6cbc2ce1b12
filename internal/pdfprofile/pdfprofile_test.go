package pdfprofile

import (
	"path/filepath"
	"testing"
)

func mainCol(texts ...string) []Line {
	out := make([]Line, len(texts))
	for i, t := range texts {
		out[i] = Line{Column: Main, Text: t}
	}
	return out
}

func sideCol(texts ...string) []Line {
	out := make([]Line, len(texts))
	for i, t := range texts {
		out[i] = Line{Column: Sidebar, Text: t}
	}
	return out
}

func export() []Line {
	var lines []Line
	lines = append(lines, sideCol("Contact", "www.linkedin.com/in/ada-lovelace (LinkedIn)", "Top Skills", "Mathematics")...)
	lines = append(lines, mainCol("Ada  Lovelace", "Analyst at Analytical Engines", "London, England, United Kingdom")...)
	lines = append(lines, sideCol("Honors-Awards", "Royal Medal")...)
	lines = append(lines, mainCol(
		"Summary",
		"I write programs for machines",
		"that do not exist yet.",
		"Page 1 of 2",
		"Experience",
		"Analytical Engines",
		"3 years 2 months",
		"Lead Analyst",
		"January 2022 - Present (2 years)",
		"London",
		"Translating the Menabrea paper. Adding notes.",
		"Analyst",
		"March 2021 - January 2022 (11 months)",
		"Difference Works",
		"Apprentice",
		"2019 - 2021",
		"Education",
		"University of London",
		"Master of Science - MS, Mathematics · (1832 - 1835)",
		"Home Schooling",
	)...)
	return lines
}

func TestParse_Header(t *testing.T) {
	snap := Parse(export())
	if snap.Info.Name != "Ada Lovelace" {
		t.Errorf("Name = %q", snap.Info.Name)
	}
	if snap.Info.Title != "Analyst at Analytical Engines" {
		t.Errorf("Title = %q", snap.Info.Title)
	}
	if snap.Info.Company != "Analytical Engines" {
		t.Errorf("Company = %q", snap.Info.Company)
	}
	if snap.URL != "https://www.linkedin.com/in/ada-lovelace" {
		t.Errorf("URL = %q", snap.URL)
	}
	if snap.Extended.About != "I write programs for machines that do not exist yet." {
		t.Errorf("About = %q", snap.Extended.About)
	}
}

func TestParse_Experience(t *testing.T) {
	exps := Parse(export()).Extended.Experiences
	if len(exps) != 3 {
		t.Fatalf("got %d experiences: %+v", len(exps), exps)
	}
	lead := exps[0]
	if lead.Title != "Lead Analyst" || lead.Company != "Analytical Engines" || lead.DateRange != "January 2022 - Present" {
		t.Errorf("first = %+v", lead)
	}
	if lead.Location != "London" || lead.Description != "Translating the Menabrea paper. Adding notes." {
		t.Errorf("first body = %q / %q", lead.Location, lead.Description)
	}
	if exps[1].Title != "Analyst" || exps[1].Company != "Analytical Engines" {
		t.Errorf("second role should share the company: %+v", exps[1])
	}
	if exps[2].Title != "Apprentice" || exps[2].Company != "Difference Works" || exps[2].DateRange != "2019 - 2021" {
		t.Errorf("third = %+v", exps[2])
	}
}

func TestParse_EducationAndAwards(t *testing.T) {
	ext := Parse(export()).Extended
	if len(ext.Education) != 2 {
		t.Fatalf("education = %+v", ext.Education)
	}
	uni := ext.Education[0]
	if uni.School != "University of London" || uni.Degree != "Master of Science - MS" || uni.FieldOfStudy != "Mathematics" || uni.DateRange != "1832 - 1835" {
		t.Errorf("education[0] = %+v", uni)
	}
	if ext.Education[1].School != "Home Schooling" || ext.Education[1].Degree != "" {
		t.Errorf("education[1] = %+v", ext.Education[1])
	}
	if len(ext.Awards) != 1 || ext.Awards[0].Name != "Royal Medal" {
		t.Errorf("awards = %+v", ext.Awards)
	}
}

func TestParse_Empty(t *testing.T) {
	snap := Parse(nil)
	if snap.Info.Name != "" || snap.Extended.Experiences == nil || snap.Extended.RecentPosts == nil {
		t.Errorf("Parse(nil) = %+v", snap)
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("Open(missing) succeeded")
	}
}
