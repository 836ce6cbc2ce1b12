package browser

import (
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/kalambet/genreach/internal/dom"
)

// Element adapts a playwright.ElementHandle to dom.Element. Read failures
// are logged at debug level and reported as empty values.
type Element struct {
	h playwright.ElementHandle
}

func wrap(h playwright.ElementHandle) dom.Element {
	if h == nil {
		return nil
	}
	return &Element{h: h}
}

func (e *Element) QueryAll(selector string) []dom.Element {
	hs, err := e.h.QuerySelectorAll(selector)
	if err != nil {
		slog.Debug("querySelectorAll failed", "selector", selector, "error", err)
		return nil
	}
	out := make([]dom.Element, 0, len(hs))
	for _, h := range hs {
		out = append(out, &Element{h: h})
	}
	return out
}

func (e *Element) Query(selector string) dom.Element {
	h, err := e.h.QuerySelector(selector)
	if err != nil {
		slog.Debug("querySelector failed", "selector", selector, "error", err)
		return nil
	}
	return wrap(h)
}

func (e *Element) Text() string {
	s, err := e.h.TextContent()
	if err != nil {
		return ""
	}
	return s
}

func (e *Element) InnerText() string {
	s, err := e.h.InnerText()
	if err != nil {
		return ""
	}
	return s
}

func (e *Element) Attr(name string) (string, bool) {
	v, err := e.h.Evaluate(`(el, n) => el.getAttribute(n)`, name)
	if err != nil || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// isVisible requires a rendered box with non-zero area and rejects
// display:none, visibility:hidden and zero opacity on the computed style.
const isVisible = `el => {
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none' || +style.opacity === 0) return false;
	const rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`

func (e *Element) Visible() bool {
	v, err := e.h.Evaluate(isVisible)
	if err != nil {
		slog.Debug("visibility check failed", "error", err)
		return false
	}
	b, _ := v.(bool)
	return b
}

func (e *Element) Disabled() bool {
	v, err := e.h.Evaluate(`el => el.disabled === true || el.getAttribute('aria-disabled') === 'true'`)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (e *Element) Closest(selector string) dom.Element {
	js, err := e.h.EvaluateHandle(`(el, s) => el.closest(s)`, selector)
	if err != nil || js == nil {
		return nil
	}
	return wrap(js.AsElement())
}

func (e *Element) Click() error { return e.h.Click() }

func (e *Element) Focus() error { return e.h.Focus() }

func (e *Element) ScrollIntoView() error { return e.h.ScrollIntoViewIfNeeded() }

func (e *Element) SetText(text string) error {
	_, err := e.h.Evaluate(`(el, t) => { if (el.tagName === 'TEXTAREA') { el.value = t; } el.textContent = t; }`, text)
	return err
}

func (e *Element) AppendLineBreak() error {
	_, err := e.h.Evaluate(`el => { el.appendChild(document.createElement('br')); }`)
	return err
}

func (e *Element) HasTrailingLineBreak() bool {
	v, err := e.h.Evaluate(`el => el.innerHTML.endsWith('<br>')`)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (e *Element) SetAttr(name, value string) error {
	_, err := e.h.Evaluate(`(el, [n, v]) => { el.setAttribute(n, v); }`, []interface{}{name, value})
	return err
}

func (e *Element) Dispatch(ev dom.Event) error {
	return e.h.DispatchEvent(string(ev), map[string]interface{}{"bubbles": true})
}
