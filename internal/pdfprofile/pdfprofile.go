// Package pdfprofile reads LinkedIn's "Save to PDF" profile export into the
// same shape the page extractor produces.
//
// The export is a two-column layout. The narrow left column carries
// contact details, skills and honors; the main column starts with the
// name and headline followed by the Summary, Experience and Education
// sections.
package pdfprofile

import (
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kalambet/genreach/internal/profile"
)

// sidebarMaxX is the right edge of the left column in PDF points.
const sidebarMaxX = 200

// Column identifies which side of the layout a line came from.
type Column int

const (
	Main Column = iota
	Sidebar
)

// Line is one visual text row of one column.
type Line struct {
	Column Column
	Text   string
}

// Open reads the export at path.
func Open(path string) (profile.Snapshot, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return profile.Snapshot{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var lines []Line
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return profile.Snapshot{}, fmt.Errorf("reading page %d of %s: %w", i, path, err)
		}
		for _, row := range rows {
			var side, main rowText
			for _, t := range row.Content {
				if t.X < sidebarMaxX {
					side.add(t)
				} else {
					main.add(t)
				}
			}
			if s := side.String(); s != "" {
				lines = append(lines, Line{Column: Sidebar, Text: s})
			}
			if s := main.String(); s != "" {
				lines = append(lines, Line{Column: Main, Text: s})
			}
		}
	}
	return Parse(lines), nil
}

// rowText joins glyph runs of one row, inserting a space where the gap
// between runs is wider than a fraction of the font size.
type rowText struct {
	b    strings.Builder
	end  float64
	seen bool
}

func (r *rowText) add(t pdf.Text) {
	if r.seen && t.X-r.end > math.Max(t.FontSize*0.2, 1) && !strings.HasPrefix(t.S, " ") {
		r.b.WriteByte(' ')
	}
	r.b.WriteString(t.S)
	r.end = t.X + t.W
	r.seen = true
}

func (r *rowText) String() string { return strings.TrimSpace(r.b.String()) }
