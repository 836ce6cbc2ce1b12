// Package browser drives a live Chromium page through Playwright and
// exposes it as a dom.Document.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kalambet/genreach/internal/dom"
)

// Options configures Launch.
type Options struct {
	Headless bool
	// UserDataDir keeps cookies between runs so a LinkedIn login survives.
	UserDataDir string
}

// Session owns the Playwright driver, the browser context and one page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	doc     *Page
}

// Launch starts Chromium and opens a page.
func Launch(opts Options) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	s := &Session{pw: pw}

	if opts.UserDataDir != "" {
		bctx, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("launching chromium: %w", err)
		}
		s.bctx = bctx
	} else {
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("launching chromium: %w", err)
		}
		s.browser = b
		bctx, err := b.NewContext()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating browser context: %w", err)
		}
		s.bctx = bctx
	}

	if pages := s.bctx.Pages(); len(pages) > 0 {
		s.page = pages[0]
	} else {
		p, err := s.bctx.NewPage()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening page: %w", err)
		}
		s.page = p
	}

	doc, err := NewPage(s.page)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// Document returns the page as a dom.Document.
func (s *Session) Document() *Page { return s.doc }

// Goto navigates and waits for the DOM to load.
func (s *Session) Goto(url string) error {
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Content returns the serialized page HTML, suitable for htmldom.Parse.
func (s *Session) Content() (string, error) {
	return s.page.Content()
}

func (s *Session) Close() {
	if s.bctx != nil {
		if err := s.bctx.Close(); err != nil {
			slog.Debug("closing browser context", "error", err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			slog.Debug("closing browser", "error", err)
		}
	}
	if err := s.pw.Stop(); err != nil {
		slog.Debug("stopping playwright", "error", err)
	}
}

const bindingName = "__genreachMutation"

const installObserver = `(el, id) => {
	const target = el || document.documentElement;
	const obs = new MutationObserver(() => window.__genreachMutation(id));
	obs.observe(target, { childList: true, subtree: true, attributes: true, characterData: true });
	(window.__genreachObservers = window.__genreachObservers || {})[id] = obs;
}`

const removeObserver = `(id) => {
	const m = window.__genreachObservers || {};
	if (m[id]) { m[id].disconnect(); delete m[id]; }
}`

var (
	_ dom.Document     = (*Page)(nil)
	_ dom.RouteWatcher = (*Page)(nil)
	_ dom.Element      = (*Element)(nil)
)

// Page adapts a playwright.Page to dom.Document.
type Page struct {
	page playwright.Page

	mu        sync.Mutex
	nextID    int
	observers map[int]func()
}

// NewPage wires the mutation binding into p.
func NewPage(p playwright.Page) (*Page, error) {
	pg := &Page{page: p, observers: make(map[int]func())}
	err := p.ExposeFunction(bindingName, func(args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		id, ok := toInt(args[0])
		if !ok {
			return nil
		}
		pg.mu.Lock()
		fn := pg.observers[id]
		pg.mu.Unlock()
		if fn != nil {
			go fn()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exposing mutation binding: %w", err)
	}
	return pg, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func (p *Page) Root() dom.Element {
	h, err := p.page.QuerySelector("html")
	if err != nil || h == nil {
		return nil
	}
	return &Element{h: h}
}

func (p *Page) URL() string { return p.page.URL() }

func (p *Page) Observe(root dom.Element, fn func()) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	var err error
	if el, ok := root.(*Element); ok && el != nil {
		_, err = el.h.Evaluate(installObserver, id)
	} else {
		_, err = p.page.Evaluate("(id) => ("+installObserver+")(null, id)", id)
	}
	if err != nil {
		slog.Debug("installing mutation observer", "error", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, id)
			p.mu.Unlock()
			if _, err := p.page.Evaluate(removeObserver, id); err != nil {
				slog.Debug("removing mutation observer", "error", err)
			}
		})
	}
}

// OnRouteChange reports main-frame navigations, including history API
// navigations, plus any URL change seen by a one-second watcher.
func (p *Page) OnRouteChange(fn func(url string)) func() {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	last := p.page.URL()
	report := func(u string) {
		mu.Lock()
		changed := u != last
		last = u
		mu.Unlock()
		if changed && ctx.Err() == nil {
			fn(u)
		}
	}

	p.page.OnFrameNavigated(func(f playwright.Frame) {
		if f == p.page.MainFrame() {
			report(f.URL())
		}
	})

	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				report(p.page.URL())
			}
		}
	}()

	return cancel
}
