// Package extract reads structured profile fields out of a page.
//
// Every field is located through an ordered list of strategies. The first
// strategy yielding a visible element with non-empty text wins. Missing
// fields and sections are never errors: they come back empty.
package extract

import (
	"strings"

	"github.com/kalambet/genreach/internal/dom"
	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/textnorm"
)

// DefaultMaxPosts caps the number of recent posts extracted.
const DefaultMaxPosts = 5

// Strategy locates one element under root, or returns nil.
type Strategy func(root dom.Element) dom.Element

// Selector returns a strategy picking the first visible element matching
// css whose text is not blank.
func Selector(css string) Strategy {
	return func(root dom.Element) dom.Element {
		for _, el := range root.QueryAll(css) {
			if el.Visible() && strings.TrimSpace(el.Text()) != "" {
				return el
			}
		}
		return nil
	}
}

// Selectors turns a selector list into strategies, preserving order.
func Selectors(css ...string) []Strategy {
	out := make([]Strategy, len(css))
	for i, c := range css {
		out[i] = Selector(c)
	}
	return out
}

// First runs strategies in priority order and returns the first hit.
func First(root dom.Element, strategies ...Strategy) dom.Element {
	if root == nil {
		return nil
	}
	for _, s := range strategies {
		if el := s(root); el != nil {
			return el
		}
	}
	return nil
}

// Clean returns the sanitized text content of el, or "" for nil.
func Clean(el dom.Element) string {
	if el == nil {
		return ""
	}
	return textnorm.Sanitize(textnorm.NFC(el.Text()))
}

func field(root dom.Element, selectors []string) string {
	return Clean(First(root, Selectors(selectors...)...))
}

// FindSection returns the section whose id contains idHint, else the first
// section whose h2/h3 heading contains heading case-insensitively.
func FindSection(root dom.Element, idHint, heading string) dom.Element {
	if root == nil {
		return nil
	}
	if idHint != "" {
		if el := root.Query(`section[id*="` + idHint + `"]`); el != nil {
			return el
		}
	}
	if heading == "" {
		return nil
	}
	want := strings.ToLower(heading)
	for _, sec := range root.QueryAll("section") {
		h := sec.Query("h2, h3")
		if h == nil {
			continue
		}
		if strings.Contains(strings.ToLower(textnorm.CollapseWhitespace(h.Text())), want) {
			return sec
		}
	}
	return nil
}

// Extractor reads profile data from a document.
type Extractor struct {
	doc      dom.Document
	maxPosts int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxPosts overrides DefaultMaxPosts. Values below 1 are ignored.
func WithMaxPosts(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxPosts = n
		}
	}
}

func New(doc dom.Document, opts ...Option) *Extractor {
	x := &Extractor{doc: doc, maxPosts: DefaultMaxPosts}
	for _, o := range opts {
		o(x)
	}
	return x
}

func (x *Extractor) root() dom.Element {
	if x.doc == nil {
		return nil
	}
	return x.doc.Root()
}

// ProfileInfo extracts the profile header.
func (x *Extractor) ProfileInfo() profile.Info {
	root := x.root()
	if root == nil {
		return profile.Info{}
	}
	info := profile.Info{
		Name:    field(root, nameSelectors),
		Title:   field(root, titleSelectors),
		Company: field(root, companySelectors),
	}
	// Current layouts have no company line in the header, so the company
	// selectors land on the headline again. Prefer the current position.
	if info.Company == "" || info.Company == info.Title {
		info.Company = ""
		if exps := x.experiences(root); len(exps) > 0 {
			info.Company = employer(exps[0].Company)
		}
	}
	return info
}

// employer strips the employment type LinkedIn appends to company names,
// as in "Acme · Full-time".
func employer(s string) string {
	if i := strings.Index(s, " · "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ExtendedProfile extracts about, experience, education, awards and posts.
func (x *Extractor) ExtendedProfile() profile.Extended {
	ext := profile.EmptyExtended()
	root := x.root()
	if root == nil {
		return ext
	}
	ext.About = x.about(root)
	ext.Experiences = x.experiences(root)
	ext.Education = x.education(root)
	ext.Awards = x.awards(root)
	ext.RecentPosts = x.recentPosts(root)
	return ext
}

// Snapshot extracts everything at once.
func (x *Extractor) Snapshot() profile.Snapshot {
	s := profile.Snapshot{
		Info:     x.ProfileInfo(),
		Extended: x.ExtendedProfile(),
	}
	if x.doc != nil {
		s.URL = x.doc.URL()
	}
	return s
}

func (x *Extractor) about(root dom.Element) string {
	sec := FindSection(root, "about", "About")
	if sec == nil {
		return ""
	}
	if s := field(sec, aboutSelectors); s != "" {
		return s
	}
	return Clean(sec)
}

func (x *Extractor) experiences(root dom.Element) []profile.Experience {
	items := []profile.Experience{}
	sec := FindSection(root, "experience", "Experience")
	if sec == nil {
		return items
	}
	for _, li := range sec.QueryAll(listItemSelector) {
		e := profile.Experience{
			Title:       field(li, boldSelectors),
			Company:     field(li, experienceCompanySelectors),
			DateRange:   field(li, experienceDateSelectors),
			Location:    field(li, experienceLocationSelectors),
			Description: field(li, experienceDescriptionSelectors),
		}
		if e.HasIdentity() {
			items = append(items, e)
		}
	}
	return items
}

func (x *Extractor) education(root dom.Element) []profile.Education {
	items := []profile.Education{}
	sec := FindSection(root, "education", "Education")
	if sec == nil {
		return items
	}
	for _, li := range sec.QueryAll(listItemSelector) {
		e := profile.Education{
			School:       field(li, schoolSelectors),
			Degree:       field(li, degreeSelectors),
			FieldOfStudy: field(li, fieldOfStudySelectors),
			DateRange:    field(li, educationDateSelectors),
		}
		if e.HasIdentity() {
			items = append(items, e)
		}
	}
	return items
}

func (x *Extractor) awards(root dom.Element) []profile.Award {
	items := []profile.Award{}
	sec := FindSection(root, "awards", "Awards")
	if sec == nil {
		sec = FindSection(root, "honors", "Honors")
	}
	if sec == nil {
		return items
	}
	for _, li := range sec.QueryAll(listItemSelector) {
		a := profile.Award{
			Name:        field(li, awardNameSelectors),
			Issuer:      field(li, awardIssuerSelectors),
			Date:        field(li, awardDateSelectors),
			Description: field(li, awardDescriptionSelectors),
		}
		if a.HasIdentity() {
			items = append(items, a)
		}
	}
	return items
}

func (x *Extractor) recentPosts(root dom.Element) []profile.Post {
	posts := []profile.Post{}
	sec := FindSection(root, "recent-activity", "Activity")
	if sec == nil {
		sec = FindSection(root, "activity", "Activity")
	}
	if sec == nil {
		return posts
	}
	seen := make(map[string]bool)
	for _, card := range sec.QueryAll(postCardSelector) {
		text := field(card, postTextSelectors)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		posts = append(posts, profile.Post{Text: textnorm.Truncate(text, profile.MaxPostRunes, "…")})
		if len(posts) >= x.maxPosts {
			break
		}
	}
	return posts
}
