package compose

import (
	"strings"

	"github.com/kalambet/genreach/internal/dom"
)

// containerSelectors match an open conversation surface. Several may be
// open at once; the last in document order is the newest.
var containerSelectors = []string{
	`.msg-overlay-conversation-bubble`,
	`.msg-conversation-container`,
	`.msg-overlay`,
	`.msg-form`,
	`section.msg-overlay-bubble`,
	`aside.msg-overlay-container`,
}

// DialogSelector is awaited after clicking the message control.
const DialogSelector = `.msg-overlay-conversation-bubble, .msg-conversation-container, .msg-overlay, div[role="dialog"], .artdeco-modal`

var inputSelectors = []string{
	`.msg-form__contenteditable[contenteditable="true"]`,
	`.msg-form__contenteditable`,
	`div[role="textbox"][contenteditable="true"]`,
	`div[contenteditable="true"][data-placeholder]`,
	`div[contenteditable="true"].notranslate`,
	`div[aria-label="Write a message"]`,
	`div[data-test-id="message-compose-input"]`,
	`div[data-placeholder]`,
	`textarea`,
}

// composeScope bounds where an input from inputSelectors may live.
const composeScope = `.msg-form, .msg-conversation-container, .msg-overlay-conversation-bubble, .msg-overlay`

// explicitEditor is the labelled rich-text editor of the current layout.
const explicitEditor = `div[aria-label="Write a message…"]`

const headerSelector = `#profile-content, .pv-top-card, .pv-top-card-v2-ctas`

var actionSelectors = []string{
	`button[aria-label^="Message"]`,
	`a[aria-label^="Message"]`,
	`button`,
	`a`,
}

const (
	moreLabelSelector = `button[aria-label*="More" i], a[aria-label*="More" i]`
	menuSelector      = `[role="menu"], .artdeco-dropdown__content, .artdeco-dropdown__content-inner`
	menuItemSelector  = `[role="menuitem"]`
)

func label(el dom.Element) string {
	if v, ok := el.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return strings.ToLower(strings.TrimSpace(el.InnerText()))
}

func text(el dom.Element) string {
	return strings.ToLower(strings.TrimSpace(el.InnerText()))
}

// isMessageControl matches "Message" and "InMail" in the accessible label or
// the visible text.
func isMessageControl(el dom.Element) bool {
	for _, s := range []string{label(el), text(el)} {
		if strings.Contains(s, "message") || strings.Contains(s, "inmail") {
			return true
		}
	}
	return false
}

func isMoreControl(el dom.Element) bool {
	return strings.Contains(text(el), "more")
}

var containerGroup = strings.Join(containerSelectors, ", ")

// LatestContainer returns the last visible outermost compose container in
// document order, or nil.
func LatestContainer(root dom.Element) dom.Element {
	if root == nil {
		return nil
	}
	var latest dom.Element
	matches := root.QueryAll(containerGroup)
	for i := 0; i < len(matches); i++ {
		el := matches[i]
		if el.Visible() {
			latest = el
		}
		// Nested matches follow their ancestor directly in document order.
		i += len(el.QueryAll(containerGroup))
	}
	return latest
}

// FindInput locates the editable message input, trying container first and
// then the whole document. Candidates from the selector list must sit inside
// a compose surface. As a last resort any visible contenteditable whose
// placeholder mentions writing a message is accepted.
func FindInput(doc dom.Element, container dom.Element) dom.Element {
	var roots []dom.Element
	if container != nil {
		roots = append(roots, container)
	}
	if doc != nil {
		roots = append(roots, doc)
	}
	for _, root := range roots {
		for _, sel := range inputSelectors {
			for _, el := range root.QueryAll(sel) {
				if el.Visible() && el.Closest(composeScope) != nil {
					return el
				}
			}
		}
	}
	for _, root := range roots {
		for _, el := range root.QueryAll(`div[contenteditable="true"]`) {
			if !el.Visible() {
				continue
			}
			if placeholderMentionsMessage(el) {
				return el
			}
		}
	}
	return nil
}

func placeholderMentionsMessage(el dom.Element) bool {
	for _, attr := range []string{"data-placeholder", "aria-placeholder"} {
		v, _ := el.Attr(attr)
		v = strings.ToLower(v)
		if strings.Contains(v, "message") || strings.Contains(v, "write") {
			return true
		}
	}
	return false
}

// findActionControl looks in the profile header first so "Message" buttons
// on suggested-profile cards elsewhere on the page are not picked.
func findActionControl(root dom.Element) dom.Element {
	if header := root.Query(headerSelector); header != nil {
		for _, el := range header.QueryAll(`button, a`) {
			if el.Visible() && isMessageControl(el) {
				return el
			}
		}
	}
	for _, sel := range actionSelectors {
		for _, el := range root.QueryAll(sel) {
			if el.Visible() && isMessageControl(el) {
				return el
			}
		}
	}
	return nil
}

func findMoreControl(root dom.Element) dom.Element {
	scope := root.Query(headerSelector)
	if scope == nil {
		scope = root
	}
	var partial dom.Element
	for _, el := range scope.QueryAll(`button, a`) {
		if !el.Visible() {
			continue
		}
		t := text(el)
		if t == "more" {
			return el
		}
		if partial == nil && isMoreControl(el) {
			partial = el
		}
	}
	if partial != nil {
		return partial
	}
	return dom.FirstVisible(scope, moreLabelSelector)
}

func findMenuItem(root dom.Element) dom.Element {
	for _, sel := range []string{menuItemSelector, `a, button`} {
		for _, el := range root.QueryAll(sel) {
			if el.Visible() && isMessageControl(el) {
				return el
			}
		}
	}
	return nil
}
