// Package generate produces an outreach message for a profile by trying
// the configured backend, then a model directly, then a local template.
package generate

import (
	"time"

	"github.com/kalambet/genreach/internal/profile"
)

// Request is the payload every tier receives. Its JSON form is the body of
// POST /api/generate.
type Request struct {
	Intent          string           `json:"intent"`
	ProfileInfo     profile.Info     `json:"profileInfo"`
	ExtendedProfile profile.Extended `json:"extendedProfile"`

	// URL is the profile page the request was built from. It is recorded
	// in the generation log and never sent to a tier.
	URL string `json:"-"`
}

// Source names the tier that produced a message.
type Source string

const (
	SourceBackend Source = "backend"
	SourceModel   Source = "direct-model"
	SourceLocal   Source = "local"
)

// Attempt records one tier call.
type Attempt struct {
	Tier     Source        `json:"tier"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Result is the outcome of Chain.Acquire. OK is always true; Error holds the
// last network tier failure when the local template was used.
type Result struct {
	OK       bool      `json:"ok"`
	Content  string    `json:"content"`
	Source   Source    `json:"source"`
	Error    string    `json:"error,omitempty"`
	Attempts []Attempt `json:"attempts"`

	// GenerationID is the generation log entry, when one was written.
	GenerationID string `json:"generationId,omitempty"`
}

// Fallback reports whether the local template produced the content.
func (r Result) Fallback() bool { return r.Source == SourceLocal }
