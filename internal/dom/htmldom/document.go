// Package htmldom implements dom.Document over a parsed HTML tree.
//
// Every write made through the dom API, plus every Mutate call, notifies
// the observers whose root contains the changed node. Click handlers
// registered with OnClick let callers script how a page reacts to clicks.
package htmldom

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/kalambet/genreach/internal/dom"
)

// Document is a mutable, concurrency-safe HTML document.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
	url  string

	obsMu     sync.Mutex
	nextID    int
	observers map[int]observer
	routes    map[int]func(string)
	clicks    []clickHandler

	events []DispatchedEvent
	focus  *html.Node
}

type observer struct {
	root *html.Node
	fn   func()
}

type clickHandler struct {
	sel cascadia.Matcher
	fn  func(d *Document, el dom.Element)
}

// DispatchedEvent records an event fired on an element.
type DispatchedEvent struct {
	Event dom.Event
	Node  *html.Node
}

var (
	_ dom.Document     = (*Document)(nil)
	_ dom.RouteWatcher = (*Document)(nil)
	_ dom.Element      = (*Element)(nil)
)

var selectorCache sync.Map

func compile(selector string) (cascadia.Matcher, bool) {
	if m, ok := selectorCache.Load(selector); ok {
		return m.(cascadia.Matcher), true
	}
	g, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, false
	}
	selectorCache.Store(selector, g)
	return g, true
}

// Parse reads an HTML document.
func Parse(r io.Reader, url string) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return &Document{
		root:      n,
		url:       url,
		observers: make(map[int]observer),
		routes:    make(map[int]func(string)),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(s, url string) (*Document, error) {
	return Parse(strings.NewReader(s), url)
}

// Open parses the HTML file at path. A <link rel="canonical"> or
// <meta property="og:url"> supplies the document URL when present.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	d, err := Parse(f, "")
	if err != nil {
		return nil, err
	}
	if el := d.Root().Query(`link[rel="canonical"]`); el != nil {
		if href, ok := el.Attr("href"); ok {
			d.url = href
		}
	}
	if d.url == "" {
		if el := d.Root().Query(`meta[property="og:url"]`); el != nil {
			d.url, _ = el.Attr("content")
		}
	}
	return d, nil
}

func (d *Document) Root() dom.Element {
	return &Element{doc: d, n: d.root}
}

func (d *Document) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

// SetURL changes the document URL and notifies route watchers, the way a
// single-page app navigates without a reload.
func (d *Document) SetURL(url string) {
	d.mu.Lock()
	changed := d.url != url
	d.url = url
	d.mu.Unlock()
	if !changed {
		return
	}

	d.obsMu.Lock()
	fns := make([]func(string), 0, len(d.routes))
	for _, fn := range d.routes {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()
	for _, fn := range fns {
		fn(url)
	}
}

func (d *Document) OnRouteChange(fn func(url string)) func() {
	d.obsMu.Lock()
	id := d.nextID
	d.nextID++
	d.routes[id] = fn
	d.obsMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.obsMu.Lock()
			delete(d.routes, id)
			d.obsMu.Unlock()
		})
	}
}

func (d *Document) Observe(root dom.Element, fn func()) func() {
	n := d.root
	if el, ok := root.(*Element); ok && el != nil {
		n = el.n
	}
	d.obsMu.Lock()
	id := d.nextID
	d.nextID++
	d.observers[id] = observer{root: n, fn: fn}
	d.obsMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.obsMu.Lock()
			delete(d.observers, id)
			d.obsMu.Unlock()
		})
	}
}

// ObserverCount returns the number of live mutation subscriptions.
func (d *Document) ObserverCount() int {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	return len(d.observers)
}

// OnClick registers fn to run whenever an element matching selector is
// clicked. Handlers run without the document lock held, so they may mutate
// the document.
func (d *Document) OnClick(selector string, fn func(d *Document, el dom.Element)) error {
	m, ok := compile(selector)
	if !ok {
		return fmt.Errorf("invalid selector %q", selector)
	}
	d.obsMu.Lock()
	d.clicks = append(d.clicks, clickHandler{sel: m, fn: fn})
	d.obsMu.Unlock()
	return nil
}

// Mutate runs fn with exclusive access to the tree, then notifies the
// observers of the node fn reports as changed (the document root if nil).
func (d *Document) Mutate(fn func(root *html.Node) *html.Node) {
	d.mu.Lock()
	changed := fn(d.root)
	d.mu.Unlock()
	if changed == nil {
		changed = d.root
	}
	d.notify(changed)
}

// AppendHTML parses fragment and appends it to the first element matching
// selector.
func (d *Document) AppendHTML(selector, fragment string) error {
	m, ok := compile(selector)
	if !ok {
		return fmt.Errorf("invalid selector %q", selector)
	}
	d.mu.Lock()
	parent := cascadia.Query(d.root, m)
	if parent == nil {
		d.mu.Unlock()
		return fmt.Errorf("no element matches %q", selector)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, c := range nodes {
		parent.AppendChild(c)
	}
	d.mu.Unlock()
	d.notify(parent)
	return nil
}

// Events returns the events dispatched so far.
func (d *Document) Events() []DispatchedEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DispatchedEvent(nil), d.events...)
}

// Focused returns the element that last received focus, or nil.
func (d *Document) Focused() dom.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.focus == nil {
		return nil
	}
	return &Element{doc: d, n: d.focus}
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String renders the document, mostly for debugging and tests.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

func (d *Document) notify(changed *html.Node) {
	d.obsMu.Lock()
	var fns []func()
	for _, o := range d.observers {
		if contains(o.root, changed) {
			fns = append(fns, o.fn)
		}
	}
	d.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *Document) runClickHandlers(el *Element) {
	d.obsMu.Lock()
	handlers := append([]clickHandler(nil), d.clicks...)
	d.obsMu.Unlock()

	for _, h := range handlers {
		d.mu.RLock()
		match := h.sel.Match(el.n)
		d.mu.RUnlock()
		if match {
			h.fn(d, el)
		}
	}
}

// contains reports whether n is root or one of its descendants.
func contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}
