// Package compose opens the message composer on a profile page and writes
// text into it.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/genreach/internal/dom"
	"github.com/kalambet/genreach/internal/probe"
)

// State of a resolution attempt.
type State string

const (
	NoTarget       State = "no-target"
	ContainerFound State = "container-found"
	InputFound     State = "input-found"
	Failed         State = "failed"
)

// Reason explains a failed or partial resolution.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonDisabledButton   Reason = "disabled-button"
	ReasonButtonNotFound   Reason = "button-not-found"
	ReasonMenuItemNotFound Reason = "menu-item-not-found"
	ReasonDialogTimeout    Reason = "dialog-timeout"
	ReasonInputNotFound    Reason = "input-not-found"
)

// Message is the user-facing status text for a reason.
func (r Reason) Message() string {
	switch r {
	case ReasonDisabledButton:
		return "Message button is disabled"
	case ReasonButtonNotFound:
		return "Message button not found on profile"
	case ReasonMenuItemNotFound:
		return "Message/InMail menu item not found"
	case ReasonDialogTimeout:
		return "Message dialog did not appear"
	case ReasonInputNotFound:
		return "Message input not found"
	}
	return ""
}

// Target is the outcome of Resolve.
type Target struct {
	State     State
	Reason    Reason
	Container dom.Element
	Input     dom.Element
	// Err carries the underlying wait error for dialog-timeout.
	Err error
}

// Open reports whether a compose container is available, with or without
// an input.
func (t Target) Open() bool {
	return t.State == ContainerFound || t.State == InputFound
}

// Failure describes a failed target, or returns "" when the composer is open.
func (t Target) Failure() string {
	if t.State != Failed {
		return ""
	}
	if t.Err != nil {
		return fmt.Sprintf("%s: %v", t.Reason.Message(), t.Err)
	}
	return t.Reason.Message()
}

// Resolver drives a page from "no composer" to an open composer with an
// input, clicking through the profile's message control when needed.
type Resolver struct {
	doc         dom.Document
	prober      *probe.Prober
	menuTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProber replaces the prober used to await the dialog.
func WithProber(p *probe.Prober) Option {
	return func(r *Resolver) {
		if p != nil {
			r.prober = p
		}
	}
}

// WithMenuTimeout bounds the wait for the overflow menu to render.
func WithMenuTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.menuTimeout = d }
}

func NewResolver(doc dom.Document, opts ...Option) *Resolver {
	r := &Resolver{
		doc:         doc,
		prober:      probe.New(doc),
		menuTimeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func fail(reason Reason, err error) Target {
	slog.Debug("compose: resolution failed", "reason", string(reason), "error", err)
	return Target{State: Failed, Reason: reason, Err: err}
}

// Resolve finds or opens the compose surface. Missing inputs are reported
// as ContainerFound with ReasonInputNotFound since some layouts render the
// input shortly after the container.
func (r *Resolver) Resolve(ctx context.Context) Target {
	root := r.doc.Root()
	if root == nil {
		return fail(ReasonButtonNotFound, nil)
	}

	container := LatestContainer(root)
	if container != nil {
		slog.Debug("compose: container already open")
	} else {
		if t, ok := r.activate(ctx, root); !ok {
			return t
		}
		el, err := r.prober.WaitFor(ctx, DialogSelector, 0, nil)
		if err != nil {
			return fail(ReasonDialogTimeout, err)
		}
		container = LatestContainer(r.doc.Root())
		if container == nil {
			container = el
		}
		slog.Debug("compose: dialog appeared")
	}

	t := Target{State: ContainerFound, Container: container}
	if in := FindInput(r.doc.Root(), container); in != nil {
		t.State = InputFound
		t.Input = in
		slog.Debug("compose: input found")
		return t
	}
	t.Reason = ReasonInputNotFound
	slog.Debug("compose: container open without input")
	return t
}

// activate clicks the message control, revealing it through the overflow
// menu when it is not shown directly.
func (r *Resolver) activate(ctx context.Context, root dom.Element) (Target, bool) {
	if btn := findActionControl(root); btn != nil {
		if btn.Disabled() {
			return fail(ReasonDisabledButton, nil), false
		}
		_ = btn.ScrollIntoView()
		if err := btn.Click(); err != nil {
			slog.Debug("compose: clicking message control", "error", err)
		}
		slog.Debug("compose: clicked message control")
		return Target{}, true
	}

	more := findMoreControl(root)
	if more == nil {
		return fail(ReasonButtonNotFound, nil), false
	}
	if err := more.Click(); err != nil {
		slog.Debug("compose: clicking more control", "error", err)
	}
	slog.Debug("compose: opened overflow menu")

	if r.menuTimeout > 0 {
		if _, err := r.prober.WaitFor(ctx, menuSelector, r.menuTimeout, nil); err != nil && !errors.Is(err, probe.ErrTimeout) {
			return fail(ReasonMenuItemNotFound, err), false
		}
	}
	item := findMenuItem(r.doc.Root())
	if item == nil {
		return fail(ReasonMenuItemNotFound, nil), false
	}
	if item.Disabled() {
		return fail(ReasonDisabledButton, nil), false
	}
	if err := item.Click(); err != nil {
		slog.Debug("compose: clicking menu item", "error", err)
	}
	slog.Debug("compose: clicked menu item")
	return Target{}, true
}
