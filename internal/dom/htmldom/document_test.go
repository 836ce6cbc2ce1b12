package htmldom

import (
	"strings"
	"testing"

	"github.com/kalambet/genreach/internal/dom"
)

const page = `<html><head><title>t</title></head><body>
<main id="m">
  <h1 class="name">Ada   Lovelace</h1>
  <p class="hidden" style="display: none">secret</p>
  <div hidden><span class="inner">also hidden</span></div>
  <ul><li>One</li><li>Two<br>lines</li></ul>
  <button aria-disabled="true">Message</button>
  <div class="box"><div contenteditable="true" class="editor"><p>old</p></div></div>
</main>
</body></html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s, "https://www.linkedin.com/in/ada/")
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return d
}

func TestQuery(t *testing.T) {
	d := mustParse(t, page)
	root := d.Root()

	if got := root.QueryAll("li"); len(got) != 2 {
		t.Fatalf("QueryAll(li) = %d elements, want 2", len(got))
	}
	if el := root.Query("h1.name"); el == nil || el.Text() != "Ada   Lovelace" {
		t.Errorf("Query(h1.name) text = %v", el)
	}
	if el := root.Query("nav"); el != nil {
		t.Errorf("Query(nav) = %v, want nil", el)
	}
	if got := root.QueryAll("[[invalid"); len(got) != 0 {
		t.Errorf("QueryAll(invalid) = %d elements, want 0", len(got))
	}
	if el := root.Query("p.hidden, h1"); el == nil {
		t.Error("selector group returned nil")
	}
}

func TestVisibility(t *testing.T) {
	d := mustParse(t, page)
	root := d.Root()

	if !root.Query("h1").Visible() {
		t.Error("h1 should be visible")
	}
	if root.Query("p.hidden").Visible() {
		t.Error("display:none paragraph should be hidden")
	}
	if root.Query("span.inner").Visible() {
		t.Error("child of hidden div should be hidden")
	}
	if root.Query("title").Visible() {
		t.Error("title should not be rendered")
	}
	if got := dom.FirstVisible(root, "p"); got == nil || got.Text() != "old" {
		t.Errorf("FirstVisible(p) = %v", got)
	}
}

func TestVisibility_InlineStyles(t *testing.T) {
	tests := []struct {
		style string
		want  bool
	}{
		{"display:none", false},
		{"DISPLAY: None", false},
		{"visibility:hidden", false},
		{"visibility: collapse", false},
		{"opacity:0", false},
		{"opacity: 0.0 !important", false},
		{"opacity:0%", false},
		{"opacity:0.5", true},
		{"opacity:1; color: red", true},
		{"display:block", true},
		{"opacity:", true},
	}
	for _, tt := range tests {
		d := mustParse(t, `<div style="`+tt.style+`"><span>x</span></div>`)
		if got := d.Root().Query("span").Visible(); got != tt.want {
			t.Errorf("style %q: Visible = %v, want %v", tt.style, got, tt.want)
		}
	}
}

func TestInnerText(t *testing.T) {
	d := mustParse(t, page)
	ul := d.Root().Query("ul")
	if got, want := ul.InnerText(), "One\nTwo\nlines"; got != want {
		t.Errorf("InnerText = %q, want %q", got, want)
	}
	if got := d.Root().Query("main").InnerText(); strings.Contains(got, "secret") {
		t.Errorf("InnerText leaked hidden text: %q", got)
	}
}

func TestDisabledAndClosest(t *testing.T) {
	d := mustParse(t, page)
	btn := d.Root().Query("button")
	if !btn.Disabled() {
		t.Error("aria-disabled button should be disabled")
	}
	ed := d.Root().Query(".editor")
	if box := ed.Closest(".box"); box == nil {
		t.Error("Closest(.box) = nil")
	}
	if self := ed.Closest("[contenteditable]"); self == nil {
		t.Error("Closest should match the element itself")
	}
	if none := ed.Closest("section"); none != nil {
		t.Errorf("Closest(section) = %v, want nil", none)
	}
}

func TestWritesNotifyObservers(t *testing.T) {
	d := mustParse(t, page)
	box := d.Root().Query(".box")
	ed := d.Root().Query(".editor")

	var boxHits, docHits int
	cancelBox := d.Observe(box, func() { boxHits++ })
	cancelDoc := d.Observe(nil, func() { docHits++ })

	if err := ed.SetText("hello"); err != nil {
		t.Fatal(err)
	}
	if err := ed.AppendLineBreak(); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendHTML("ul", "<li>Three</li>"); err != nil {
		t.Fatal(err)
	}

	if boxHits != 2 {
		t.Errorf("box observer hits = %d, want 2", boxHits)
	}
	if docHits != 3 {
		t.Errorf("document observer hits = %d, want 3", docHits)
	}
	if !ed.HasTrailingLineBreak() {
		t.Error("HasTrailingLineBreak = false after AppendLineBreak")
	}
	if got := ed.Text(); got != "hello" {
		t.Errorf("Text = %q, want hello", got)
	}

	cancelBox()
	cancelBox()
	cancelDoc()
	if n := d.ObserverCount(); n != 0 {
		t.Errorf("ObserverCount = %d, want 0", n)
	}
}

func TestClickHandlers(t *testing.T) {
	d := mustParse(t, page)
	err := d.OnClick("button", func(d *Document, el dom.Element) {
		_ = d.AppendHTML("main", `<div class="dialog">opened</div>`)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Root().Query("button").Click(); err != nil {
		t.Fatal(err)
	}
	if d.Root().Query(".dialog") == nil {
		t.Error("click handler did not run")
	}
}

func TestRouteChange(t *testing.T) {
	d := mustParse(t, page)
	var got []string
	cancel := d.OnRouteChange(func(u string) { got = append(got, u) })
	d.SetURL("https://www.linkedin.com/feed/")
	d.SetURL("https://www.linkedin.com/feed/")
	cancel()
	d.SetURL("https://www.linkedin.com/in/x/")

	if len(got) != 1 || got[0] != "https://www.linkedin.com/feed/" {
		t.Errorf("route notifications = %v", got)
	}
	if d.URL() != "https://www.linkedin.com/in/x/" {
		t.Errorf("URL = %q", d.URL())
	}
}

func TestDispatchRecordsEvents(t *testing.T) {
	d := mustParse(t, page)
	ed := d.Root().Query(".editor")
	_ = ed.Dispatch(dom.EventInput)
	_ = ed.Dispatch(dom.EventChange)
	ev := d.Events()
	if len(ev) != 2 || ev[0].Event != dom.EventInput || ev[1].Event != dom.EventChange {
		t.Errorf("Events = %+v", ev)
	}
}
