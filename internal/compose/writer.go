package compose

import (
	"log/slog"

	"github.com/kalambet/genreach/internal/dom"
)

// Writer puts generated text into the composer.
type Writer struct {
	doc dom.Document
}

func NewWriter(doc dom.Document) *Writer {
	return &Writer{doc: doc}
}

// Inject writes text into the composer inside container (or anywhere on the
// page when container is nil) and fires the events the page listens to. It
// reports false when there is nothing writable.
func (w *Writer) Inject(text string, container dom.Element) bool {
	root := container
	if root == nil {
		root = w.doc.Root()
	}
	if root == nil {
		return false
	}

	if editor := root.Query(explicitEditor); editor != nil {
		if p := editor.Query("p"); p != nil {
			if err := p.SetText(text); err != nil {
				slog.Debug("compose: writing editor paragraph", "error", err)
				return false
			}
			_ = editor.Dispatch(dom.EventInput)
			return true
		}
	}

	input := FindInput(w.doc.Root(), container)
	if input == nil {
		return false
	}
	_ = input.Focus()
	if err := input.SetText(text); err != nil {
		slog.Debug("compose: writing input", "error", err)
		return false
	}
	// Rich-text editors treat a block without a trailing <br> as empty.
	if !input.HasTrailingLineBreak() && !isTextarea(input) {
		_ = input.AppendLineBreak()
	}
	if _, ok := input.Attr("data-artdeco-is-empty"); ok {
		_ = input.SetAttr("data-artdeco-is-empty", "false")
	}
	_ = input.Dispatch(dom.EventInput)
	_ = input.Dispatch(dom.EventChange)
	return true
}

// isTextarea is true for plain text areas, which hold no markup.
func isTextarea(el dom.Element) bool {
	return el.Closest("textarea") != nil
}
