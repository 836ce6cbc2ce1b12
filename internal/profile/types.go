// Package profile holds the structured view of a scraped LinkedIn profile.
// Values are rebuilt on every extraction and never cached.
package profile

import "strings"

// Info is the profile header.
type Info struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// Extended holds the profile sections below the header. Slices are never nil
// so they encode as empty JSON arrays.
type Extended struct {
	About       string       `json:"about"`
	Experiences []Experience `json:"experiences"`
	Education   []Education  `json:"education"`
	Awards      []Award      `json:"awards"`
	RecentPosts []Post       `json:"recentPosts"`
}

type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	DateRange   string `json:"dateRange"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// HasIdentity reports whether any of title, company or description is set.
func (e Experience) HasIdentity() bool {
	return e.Title != "" || e.Company != "" || e.Description != ""
}

type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	DateRange    string `json:"dateRange"`
}

func (e Education) HasIdentity() bool {
	return e.School != "" || e.Degree != "" || e.FieldOfStudy != ""
}

type Award struct {
	Name        string `json:"name"`
	Issuer      string `json:"issuer"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func (a Award) HasIdentity() bool {
	return a.Name != "" || a.Description != ""
}

// Post is a recent activity item. Text is at most MaxPostRunes runes plus an
// ellipsis.
type Post struct {
	Text string `json:"text"`
}

// MaxPostRunes bounds a single post's text.
const MaxPostRunes = 400

// EmptyExtended returns an Extended with non-nil empty slices.
func EmptyExtended() Extended {
	return Extended{
		Experiences: []Experience{},
		Education:   []Education{},
		Awards:      []Award{},
		RecentPosts: []Post{},
	}
}

// Normalize replaces nil slices with empty ones, e.g. after decoding JSON
// that omitted them.
func (e *Extended) Normalize() {
	if e.Experiences == nil {
		e.Experiences = []Experience{}
	}
	if e.Education == nil {
		e.Education = []Education{}
	}
	if e.Awards == nil {
		e.Awards = []Award{}
	}
	if e.RecentPosts == nil {
		e.RecentPosts = []Post{}
	}
}

// FirstName returns the first whitespace-separated token of Name.
func (i Info) FirstName() string {
	fields := strings.Fields(i.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Snapshot bundles everything extracted from one page.
type Snapshot struct {
	URL      string   `json:"url,omitempty"`
	Info     Info     `json:"profileInfo"`
	Extended Extended `json:"extendedProfile"`
}
