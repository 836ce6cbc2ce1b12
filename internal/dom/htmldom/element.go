package htmldom

import (
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kalambet/genreach/internal/dom"
)

// Element wraps an html.Node of a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

// Node exposes the underlying node.
func (e *Element) Node() *html.Node { return e.n }

func (e *Element) wrap(n *html.Node) dom.Element {
	if n == nil {
		return nil
	}
	return &Element{doc: e.doc, n: n}
}

func (e *Element) QueryAll(selector string) []dom.Element {
	m, ok := compile(selector)
	if !ok {
		return nil
	}
	e.doc.mu.RLock()
	nodes := cascadia.QueryAll(e.n, m)
	e.doc.mu.RUnlock()
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{doc: e.doc, n: n})
	}
	return out
}

func (e *Element) Query(selector string) dom.Element {
	m, ok := compile(selector)
	if !ok {
		return nil
	}
	e.doc.mu.RLock()
	n := cascadia.Query(e.n, m)
	e.doc.mu.RUnlock()
	return e.wrap(n)
}

func (e *Element) Text() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var b strings.Builder
	collectText(e.n, &b)
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Header: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true,
}

// InnerText approximates the browser's rendered text: hidden subtrees are
// skipped, block elements and <br> start new lines, and whitespace inside
// a line is collapsed.
func (e *Element) InnerText() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if !e.visibleLocked() {
		return ""
	}
	var b strings.Builder
	collectInnerText(e.n, &b)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func collectInnerText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenSelf(n) {
			return
		}
		if n.DataAtom == atom.Br {
			b.WriteByte('\n')
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectInnerText(c, b)
	}
	if block {
		b.WriteByte('\n')
	}
}

func (e *Element) Attr(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return attr(e.n, name)
}

func attr(n *html.Node, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Visible reports whether the element is attached and neither it nor an
// ancestor is hidden by the hidden attribute, an inline display, visibility
// or zero opacity style, or a non-rendered tag. A static tree has no
// layout, so area is not checked.
func (e *Element) Visible() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.visibleLocked()
}

func (e *Element) visibleLocked() bool {
	if !contains(e.doc.root, e.n) {
		return false
	}
	for p := e.n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && hiddenSelf(p) {
			return false
		}
	}
	return true
}

var nonRendered = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
	atom.Noscript: true, atom.Title: true, atom.Meta: true, atom.Link: true,
}

func hiddenSelf(n *html.Node) bool {
	if nonRendered[n.DataAtom] {
		return true
	}
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if n.DataAtom == atom.Input {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}
	style, ok := attr(n, "style")
	if !ok {
		return false
	}
	for _, decl := range strings.Split(style, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		switch prop {
		case "display":
			if val == "none" {
				return true
			}
		case "visibility":
			if val == "hidden" || val == "collapse" {
				return true
			}
		case "opacity":
			if zeroOpacity(val) {
				return true
			}
		}
	}
	return false
}

// zeroOpacity reports whether a CSS opacity value is 0 or 0%.
func zeroOpacity(v string) bool {
	pct := strings.HasSuffix(v, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return false
	}
	if pct {
		f /= 100
	}
	return f <= 0
}

func (e *Element) Disabled() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if _, ok := attr(e.n, "disabled"); ok {
		return true
	}
	v, _ := attr(e.n, "aria-disabled")
	return v == "true"
}

func (e *Element) Closest(selector string) dom.Element {
	m, ok := compile(selector)
	if !ok {
		return nil
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for p := e.n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && m.Match(p) {
			return &Element{doc: e.doc, n: p}
		}
	}
	return nil
}

func (e *Element) Click() error {
	e.doc.runClickHandlers(e)
	return nil
}

func (e *Element) Focus() error {
	e.doc.mu.Lock()
	e.doc.focus = e.n
	e.doc.mu.Unlock()
	return nil
}

func (e *Element) ScrollIntoView() error { return nil }

func (e *Element) SetText(text string) error {
	e.doc.mu.Lock()
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	e.doc.mu.Unlock()
	e.doc.notify(e.n)
	return nil
}

func (e *Element) AppendLineBreak() error {
	e.doc.mu.Lock()
	e.n.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
	e.doc.mu.Unlock()
	e.doc.notify(e.n)
	return nil
}

func (e *Element) HasTrailingLineBreak() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	last := e.n.LastChild
	return last != nil && last.Type == html.ElementNode && last.DataAtom == atom.Br
}

func (e *Element) SetAttr(name, value string) error {
	name = strings.ToLower(name)
	e.doc.mu.Lock()
	set := false
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			set = true
			break
		}
	}
	if !set {
		e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	}
	e.doc.mu.Unlock()
	e.doc.notify(e.n)
	return nil
}

func (e *Element) Dispatch(ev dom.Event) error {
	e.doc.mu.Lock()
	e.doc.events = append(e.doc.events, DispatchedEvent{Event: ev, Node: e.n})
	e.doc.mu.Unlock()
	return nil
}

// Remove detaches the element from the tree.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	parent := e.n.Parent
	if parent != nil {
		parent.RemoveChild(e.n)
	}
	e.doc.mu.Unlock()
	if parent != nil {
		e.doc.notify(parent)
	}
}
