// Package dom defines the page capability the profile pipeline works
// against. Implementations live in dom/htmldom (parsed snapshots) and
// dom/browser (a live Chromium page).
//
// Query methods are fail-soft: an invalid selector or a detached element
// yields an empty result rather than an error.
package dom

// Event names dispatched after programmatic edits so page frameworks notice
// the change.
type Event string

const (
	EventInput  Event = "input"
	EventChange Event = "change"
)

// Element is a node of a page.
type Element interface {
	// QueryAll returns matching descendants in document order.
	QueryAll(selector string) []Element
	// Query returns the first matching descendant or nil.
	Query(selector string) Element
	// Text returns the raw text content of the subtree.
	Text() string
	// InnerText returns the rendered text of the subtree.
	InnerText() string
	Attr(name string) (string, bool)
	Visible() bool
	// Disabled reports a disabled attribute or aria-disabled="true".
	Disabled() bool
	// Closest returns the element itself or its nearest ancestor matching
	// selector, or nil.
	Closest(selector string) Element

	Click() error
	Focus() error
	ScrollIntoView() error
	// SetText replaces all children with a single text node.
	SetText(text string) error
	AppendLineBreak() error
	HasTrailingLineBreak() bool
	SetAttr(name, value string) error
	Dispatch(ev Event) error
}

// Document is a page.
type Document interface {
	Root() Element
	URL() string
	// Observe calls fn after any change inside root's subtree. A nil root
	// observes the whole document. The returned cancel func is idempotent.
	Observe(root Element, fn func()) (cancel func())
}

// RouteWatcher reports client-side navigation.
type RouteWatcher interface {
	OnRouteChange(fn func(url string)) (cancel func())
}

// QueryFirst runs each selector in order against root and returns the first
// element matched by any of them.
func QueryFirst(root Element, selectors ...string) Element {
	if root == nil {
		return nil
	}
	for _, sel := range selectors {
		if el := root.Query(sel); el != nil {
			return el
		}
	}
	return nil
}

// FirstVisible returns the first visible element matched by selector.
func FirstVisible(root Element, selector string) Element {
	if root == nil {
		return nil
	}
	for _, el := range root.QueryAll(selector) {
		if el.Visible() {
			return el
		}
	}
	return nil
}
