// Package runtime carries the action-tagged messages exchanged between the
// panel and the generation side. The Dispatcher is transport-agnostic;
// HTTP and WebSocket transports wrap it.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/panel"
	"github.com/kalambet/genreach/internal/profile"
)

// Actions.
const (
	ActionGenerateAI      = "generate_ai_message"
	ActionTogglePanel     = "genreach_toggle_panel"
	ActionPing            = "ping"
	ActionGenerateMessage = "generateMessage"
)

// GenerateMessageCooldown releases the processing flag after a
// generateMessage request.
const GenerateMessageCooldown = 2 * time.Second

// Error texts returned to callers.
const (
	errUnknownAction = "unknown action"
	errBusy          = "Already processing a message request"
	errNotProfile    = "Not on a LinkedIn profile page"
	errNoPage        = "no page attached"
	errNoInput       = "Could not find the message input after opening dialog"
	errBackendFailed = "Backend failed"
	errNotOpened     = "Message generated"
)

// Request is one action envelope.
type Request struct {
	ID      string            `json:"id,omitempty"`
	Action  string            `json:"action"`
	Payload *generate.Request `json:"payload,omitempty"`
	Intent  string            `json:"intent,omitempty"`
}

// Response is the reply envelope. Which fields are set depends on the
// action: generate_ai_message, toggle and ping answer with ok, and
// generateMessage answers with success.
type Response struct {
	ID              string            `json:"id,omitempty"`
	OK              *bool             `json:"ok,omitempty"`
	Success         *bool             `json:"success,omitempty"`
	Content         string            `json:"content,omitempty"`
	Message         string            `json:"message,omitempty"`
	Error           string            `json:"error,omitempty"`
	Fallback        string            `json:"fallback,omitempty"`
	ProfileInfo     *profile.Info     `json:"profileInfo,omitempty"`
	ExtendedProfile *profile.Extended `json:"extendedProfile,omitempty"`

	// Event and State are set on pushed state frames.
	Event string       `json:"event,omitempty"`
	State *panel.State `json:"state,omitempty"`
}

func okResponse(ok bool) Response { return Response{OK: &ok} }

// Generator acquires a message for a request.
type Generator interface {
	Acquire(ctx context.Context, req generate.Request) generate.Result
}

// Page is the panel side of a dispatcher. *panel.Controller implements it.
type Page interface {
	Toggle() bool
	Busy() bool
	Eligible() bool
	GenerateWithCooldown(ctx context.Context, intent string, cooldown time.Duration) (panel.Outcome, error)
	Subscribe(fn func(panel.State)) (cancel func())
}

// Dispatcher routes requests to the chain and the attached page.
type Dispatcher struct {
	gen  Generator
	page Page
}

// NewDispatcher creates a Dispatcher. page may be nil when no browser page
// is attached; page actions then fail.
func NewDispatcher(gen Generator, page Page) *Dispatcher {
	return &Dispatcher{gen: gen, page: page}
}

// Handle answers one request. It never returns an error; failures are
// reported in the response.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	var resp Response
	switch req.Action {
	case ActionPing:
		resp = okResponse(true)
	case ActionGenerateAI:
		resp = d.generateAI(ctx, req)
	case ActionTogglePanel:
		if d.page == nil {
			resp = okResponse(false)
			resp.Error = errNoPage
			break
		}
		d.page.Toggle()
		resp = okResponse(true)
	case ActionGenerateMessage:
		resp = d.generateMessage(ctx, req.Intent)
	default:
		slog.Debug("runtime: unknown action", "action", req.Action)
		resp = okResponse(false)
		resp.Error = errUnknownAction
	}
	resp.ID = req.ID
	return resp
}

func (d *Dispatcher) generateAI(ctx context.Context, req Request) Response {
	var payload generate.Request
	if req.Payload != nil {
		payload = *req.Payload
	}
	payload.ExtendedProfile.Normalize()
	res := d.gen.Acquire(ctx, payload)
	if !res.OK {
		resp := okResponse(false)
		resp.Error = res.Error
		return resp
	}
	resp := okResponse(true)
	resp.Content = res.Content
	if res.Fallback() {
		resp.Fallback = string(generate.SourceLocal)
	}
	return resp
}

func failure(msg string) Response {
	f := false
	return Response{Success: &f, Error: msg}
}

func (d *Dispatcher) generateMessage(ctx context.Context, intent string) Response {
	if d.page == nil {
		return failure(errNotProfile)
	}
	if d.page.Busy() {
		return failure(errBusy)
	}
	if !d.page.Eligible() {
		return failure(errNotProfile)
	}

	out, err := d.page.GenerateWithCooldown(ctx, intent, GenerateMessageCooldown)
	if errors.Is(err, panel.ErrBusy) {
		return failure(errBusy)
	}
	if err != nil {
		return failure(err.Error())
	}

	info, ext := out.Snapshot.Info, out.Snapshot.Extended
	var resp Response
	switch out.Status.Kind {
	case panel.StatusInserted:
		t := true
		resp = Response{Success: &t, Message: out.Message}
	case panel.StatusBackendFailed:
		resp = failure(firstNonEmpty(out.Result.Error, errBackendFailed))
	case panel.StatusOpenFailed:
		resp = failure(firstNonEmpty(out.Target.Failure(), errNotOpened))
	default:
		resp = failure(errNoInput)
		resp.ProfileInfo = &info
		return resp
	}
	resp.ProfileInfo = &info
	resp.ExtendedProfile = &ext
	return resp
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
