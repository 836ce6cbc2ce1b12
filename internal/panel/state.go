// Package panel drives the floating outreach panel: it tracks whether the
// current page is a profile, holds the panel state and runs the
// scrape, generate, open and insert flow behind the generate action.
package panel

import (
	"strings"
	"sync"

	"github.com/kalambet/genreach/internal/settings"
)

// StatusKind classifies the panel status line.
type StatusKind string

const (
	StatusIdle          StatusKind = ""
	StatusGenerating    StatusKind = "generating"
	StatusInserted      StatusKind = "inserted"
	StatusBackendFailed StatusKind = "backend-failed"
	StatusOpenFailed    StatusKind = "open-failed"
	StatusInputNotFound StatusKind = "input-not-found"
)

// Status is the text shown on the panel status line.
type Status struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text"`
}

// Terminal reports whether the status ends a generate action.
func (s Status) Terminal() bool {
	return s.Kind != StatusIdle && s.Kind != StatusGenerating
}

// Warning reports whether the status should be shown as a warning.
func (s Status) Warning() bool {
	return s.Kind == StatusBackendFailed || s.Kind == StatusOpenFailed || s.Kind == StatusInputNotFound
}

func generating() Status { return Status{Kind: StatusGenerating, Text: "Generating..."} }

func inserted(name string) Status {
	if name == "" {
		name = "profile"
	}
	return Status{Kind: StatusInserted, Text: "Inserted message for " + name}
}

func backendFailed(reason string) Status {
	if reason == "" {
		reason = "Unknown error"
	}
	return Status{Kind: StatusBackendFailed, Text: "Backend failed: " + reason}
}

func openFailed(reason string) Status {
	return Status{Kind: StatusOpenFailed, Text: reason}
}

func inputNotFound() Status {
	return Status{Kind: StatusInputNotFound, Text: "Message input not found"}
}

// State is a copy of the panel state.
type State struct {
	Visible      bool   `json:"visible"`
	Theme        string `json:"theme"`
	LastIntent   string `json:"lastIntent"`
	IsProcessing bool   `json:"isProcessing"`
	Status       Status `json:"status"`
}

// Panel owns the panel state. Every transition goes through a method and
// is broadcast to subscribers after the lock is released.
type Panel struct {
	mu    sync.Mutex
	state State

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewPanel returns a hidden panel with the light theme.
func NewPanel() *Panel {
	return &Panel{
		state: State{Theme: settings.ThemeLight},
		subs:  map[int]func(State){},
	}
}

// Snapshot returns a copy of the current state.
func (p *Panel) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe calls fn with the new state after every change. The returned
// cancel func is idempotent.
func (p *Panel) Subscribe(fn func(State)) (cancel func()) {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
		})
	}
}

// update applies fn under the lock and broadcasts when it reports a change.
func (p *Panel) update(fn func(s *State) bool) {
	p.mu.Lock()
	changed := fn(&p.state)
	snap := p.state
	p.mu.Unlock()
	if !changed {
		return
	}

	p.subMu.Lock()
	fns := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (p *Panel) Show() {
	p.update(func(s *State) bool {
		changed := !s.Visible
		s.Visible = true
		return changed
	})
}

func (p *Panel) Hide() {
	p.update(func(s *State) bool {
		changed := s.Visible
		s.Visible = false
		return changed
	})
}

// Toggle flips visibility and returns the new value.
func (p *Panel) Toggle() bool {
	var visible bool
	p.update(func(s *State) bool {
		s.Visible = !s.Visible
		visible = s.Visible
		return true
	})
	return visible
}

// SetTheme sets "light" or "dark"; anything else means light.
func (p *Panel) SetTheme(theme string) {
	if theme != settings.ThemeDark {
		theme = settings.ThemeLight
	}
	p.update(func(s *State) bool {
		changed := s.Theme != theme
		s.Theme = theme
		return changed
	})
}

// ToggleTheme switches between light and dark and returns the new theme.
func (p *Panel) ToggleTheme() string {
	var theme string
	p.update(func(s *State) bool {
		if s.Theme == settings.ThemeDark {
			s.Theme = settings.ThemeLight
		} else {
			s.Theme = settings.ThemeDark
		}
		theme = s.Theme
		return true
	})
	return theme
}

func (p *Panel) SetIntent(intent string) {
	intent = strings.TrimSpace(intent)
	p.update(func(s *State) bool {
		changed := s.LastIntent != intent
		s.LastIntent = intent
		return changed
	})
}

func (p *Panel) SetStatus(st Status) {
	p.update(func(s *State) bool {
		changed := s.Status != st
		s.Status = st
		return changed
	})
}

// TryBeginProcessing sets the processing flag and reports whether it was
// clear before.
func (p *Panel) TryBeginProcessing() bool {
	var ok bool
	p.update(func(s *State) bool {
		ok = !s.IsProcessing
		s.IsProcessing = true
		return ok
	})
	return ok
}

// SetProcessing sets the processing flag unconditionally.
func (p *Panel) SetProcessing(v bool) {
	p.update(func(s *State) bool {
		changed := s.IsProcessing != v
		s.IsProcessing = v
		return changed
	})
}

// Busy reports whether a generate action holds the processing flag.
func (p *Panel) Busy() bool {
	return p.Snapshot().IsProcessing
}

// IsEligibleProfile reports whether url is a viewable LinkedIn profile.
// Edit routes are excluded.
func IsEligibleProfile(url string) bool {
	if strings.Contains(url, "/edit") {
		return false
	}
	return strings.Contains(url, "linkedin.com/in/") || strings.Contains(url, "linkedin.com/pub/")
}
