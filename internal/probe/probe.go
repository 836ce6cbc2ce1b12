// Package probe waits for elements to appear on a page.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/genreach/internal/dom"
)

// DefaultTimeout bounds a single WaitFor call when no timeout is given.
const DefaultTimeout = 15 * time.Second

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("timed out waiting for element")

// TimeoutError reports the selector that never appeared.
type TimeoutError struct {
	Selector string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %q", e.After, e.Selector)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Prober waits for selectors on one document.
type Prober struct {
	doc          dom.Document
	timeout      time.Duration
	pollInterval time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the default wait bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPollInterval adds a periodic re-check next to mutation notifications,
// for pages whose notifications are unreliable. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(p *Prober) { p.pollInterval = d }
}

func New(doc dom.Document, opts ...Option) *Prober {
	p := &Prober{doc: doc, timeout: DefaultTimeout}
	for _, o := range opts {
		o(p)
	}
	return p
}

// WaitFor returns the first element under root matching selector, waiting up
// to timeout (the prober default when zero) for it to appear. A nil root
// means the whole document. The mutation subscription is released on every
// return path.
func (p *Prober) WaitFor(ctx context.Context, selector string, timeout time.Duration, root dom.Element) (dom.Element, error) {
	if timeout <= 0 {
		timeout = p.timeout
	}
	find := func() dom.Element {
		r := root
		if r == nil {
			r = p.doc.Root()
		}
		if r == nil {
			return nil
		}
		return r.Query(selector)
	}

	if el := find(); el != nil {
		return el, nil
	}

	changed := make(chan struct{}, 1)
	cancel := p.doc.Observe(root, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var poll <-chan time.Time
	if p.pollInterval > 0 {
		t := time.NewTicker(p.pollInterval)
		defer t.Stop()
		poll = t.C
	}

	// A mutation may have landed between the first check and Observe.
	if el := find(); el != nil {
		return el, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, &TimeoutError{Selector: selector, After: timeout}
		case <-changed:
		case <-poll:
		}
		if el := find(); el != nil {
			return el, nil
		}
	}
}

// WaitFor is a one-shot convenience around Prober.WaitFor.
func WaitFor(ctx context.Context, doc dom.Document, selector string, timeout time.Duration, root dom.Element) (dom.Element, error) {
	return New(doc).WaitFor(ctx, selector, timeout, root)
}
