package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

// Summarize renders the profile as compact prose for prompts sent to small
// local models, which handle a short paragraph better than nested JSON.
func Summarize(info Info, ext Extended) string {
	var parts []string

	if info.Name != "" {
		head := info.Name
		switch {
		case info.Title != "" && info.Company != "":
			head += fmt.Sprintf(", %s at %s", info.Title, info.Company)
		case info.Title != "":
			head += ", " + info.Title
		case info.Company != "":
			head += " at " + info.Company
		}
		parts = append(parts, head+".")
	}

	if ext.About != "" {
		parts = append(parts, "About: "+ext.About)
	}

	var exps []string
	for _, e := range ext.Experiences {
		s := e.Title
		if e.Company != "" {
			if s != "" {
				s += " at "
			}
			s += e.Company
		}
		if e.DateRange != "" {
			s += " (" + e.DateRange + ")"
		}
		if s != "" {
			exps = append(exps, s)
		}
	}
	if len(exps) > 0 {
		parts = append(parts, fmt.Sprintf("Experience: %s.", strings.Join(exps, "; ")))
	}

	var schools []string
	for _, e := range ext.Education {
		s := strings.TrimSpace(strings.Join(nonEmpty(e.Degree, e.FieldOfStudy), ", "))
		if e.School != "" {
			if s != "" {
				s += ", "
			}
			s += e.School
		}
		if s != "" {
			schools = append(schools, s)
		}
	}
	if len(schools) > 0 {
		parts = append(parts, fmt.Sprintf("Education: %s.", strings.Join(schools, "; ")))
	}

	var awards []string
	for _, a := range ext.Awards {
		if a.Name != "" {
			awards = append(awards, a.Name)
		}
	}
	if len(awards) > 0 {
		parts = append(parts, fmt.Sprintf("Awards: %s.", strings.Join(awards, "; ")))
	}

	for _, p := range ext.RecentPosts {
		parts = append(parts, "Recent post: "+p.Text)
	}

	if len(parts) == 0 {
		return "No profile details available."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
