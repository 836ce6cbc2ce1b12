package pdfprofile

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/textnorm"
)

var (
	mainSections    = map[string]bool{"summary": true, "experience": true, "education": true}
	sidebarSections = map[string]bool{
		"contact": true, "top skills": true, "languages": true, "certifications": true,
		"honors-awards": true, "publications": true, "patents": true,
	}

	pageFooter = regexp.MustCompile(`^Page \d+ of \d+$`)
	dateRange  = regexp.MustCompile(`^(?:[A-Za-z]+ )?\d{4}\s*-\s*(?:Present|(?:[A-Za-z]+ )?\d{4})`)
	duration   = regexp.MustCompile(`^(?:\d+ years?)?\s?(?:\d+ months?)?$`)
	eduDates   = regexp.MustCompile(`\(([^)]*\d{4}[^)]*)\)`)
)

// Parse builds a snapshot from the text lines of an export. Every line is
// sanitized first. Unknown material is ignored and missing sections come
// back empty.
func Parse(lines []Line) profile.Snapshot {
	snap := profile.Snapshot{Extended: profile.EmptyExtended()}

	var header []string
	sections := map[string][]string{}
	var mainSec, sideSec string
	for _, l := range lines {
		text := textnorm.Sanitize(textnorm.NFC(l.Text))
		if text == "" || pageFooter.MatchString(text) {
			continue
		}
		key := strings.ToLower(text)
		if l.Column == Sidebar {
			if sidebarSections[key] {
				sideSec = key
			} else if sideSec != "" {
				sections[sideSec] = append(sections[sideSec], text)
			}
			continue
		}
		switch {
		case mainSections[key]:
			mainSec = key
		case mainSec == "":
			header = append(header, text)
		default:
			sections[mainSec] = append(sections[mainSec], text)
		}
	}

	if len(header) > 0 {
		snap.Info.Name = header[0]
	}
	if len(header) > 1 {
		snap.Info.Title = header[1]
	}
	snap.URL = profileURL(sections["contact"])
	snap.Extended.About = strings.Join(sections["summary"], " ")
	snap.Extended.Experiences = experiences(sections["experience"])
	snap.Extended.Education = education(sections["education"])
	for _, name := range sections["honors-awards"] {
		snap.Extended.Awards = append(snap.Extended.Awards, profile.Award{Name: name})
	}
	if len(snap.Extended.Experiences) > 0 {
		snap.Info.Company = snap.Extended.Experiences[0].Company
	}
	return snap
}

func profileURL(contact []string) string {
	for _, l := range contact {
		for _, f := range strings.Fields(l) {
			if i := strings.Index(f, "linkedin.com/in/"); i >= 0 {
				return "https://www." + strings.TrimPrefix(f[i:], "www.")
			}
		}
	}
	return ""
}

// headingLike reports whether s reads like a company or title line rather
// than prose.
func headingLike(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= 60 && !strings.HasSuffix(s, ".") && !dateRange.MatchString(s)
}

func isDuration(s string) bool {
	return s != "" && duration.MatchString(s)
}

// experiences anchors each position on its date line. The line above is
// the title; the one above that is the company, unless it belongs to the
// previous position. A bare duration line marks a company with several
// roles, which then share the company.
func experiences(lines []string) []profile.Experience {
	out := []profile.Experience{}
	var dates []int
	for i, l := range lines {
		if dateRange.MatchString(l) {
			dates = append(dates, i)
		}
	}

	starts := make([]int, len(dates))
	companies := make([]string, len(dates))
	floor, company := 0, ""
	for n, d := range dates {
		start := d
		if d-1 >= floor {
			start = d - 1
		}
		switch {
		case d-3 >= floor && isDuration(lines[d-2]):
			company, start = lines[d-3], d-3
		case d-2 >= floor && headingLike(lines[d-2]):
			company, start = lines[d-2], d-2
		}
		starts[n], companies[n] = start, company
		floor = d + 1
	}

	for n, d := range dates {
		end := len(lines)
		if n+1 < len(dates) {
			end = starts[n+1]
		}
		e := profile.Experience{Company: companies[n], DateRange: stripParens(lines[d])}
		if d-1 >= starts[n] {
			e.Title = lines[d-1]
		}
		body := lines[d+1 : end]
		if len(body) > 0 && headingLike(body[0]) && !strings.Contains(body[0], ". ") {
			e.Location, body = body[0], body[1:]
		}
		e.Description = strings.Join(body, " ")
		if e.HasIdentity() {
			out = append(out, e)
		}
	}
	return out
}

func stripParens(s string) string {
	if i := strings.Index(s, " ("); i > 0 {
		return s[:i]
	}
	return s
}

// education reads "School" lines, each optionally followed by a
// "Degree, Field · (2010 - 2014)" line.
func education(lines []string) []profile.Education {
	out := []profile.Education{}
	for i := 0; i < len(lines); i++ {
		e := profile.Education{School: lines[i]}
		if i+1 < len(lines) && isDegreeLine(lines[i+1]) {
			i++
			detail := lines[i]
			if m := eduDates.FindStringSubmatch(detail); m != nil {
				e.DateRange = strings.TrimSpace(m[1])
				detail = strings.Replace(detail, m[0], "", 1)
			}
			detail = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(detail), "·"))
			e.Degree, e.FieldOfStudy, _ = strings.Cut(detail, ", ")
			e.Degree = strings.TrimSpace(e.Degree)
			e.FieldOfStudy = strings.TrimSpace(e.FieldOfStudy)
		}
		if e.HasIdentity() {
			out = append(out, e)
		}
	}
	return out
}

func isDegreeLine(s string) bool {
	return strings.Contains(s, "·") || eduDates.MatchString(s)
}
