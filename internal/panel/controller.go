package panel

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/genreach/internal/compose"
	"github.com/kalambet/genreach/internal/dom"
	"github.com/kalambet/genreach/internal/extract"
	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/settings"
)

// DefaultCooldown delays releasing the processing flag after a generate
// action so a double click does not start a second one.
const DefaultCooldown = 800 * time.Millisecond

// ErrBusy is returned while a generate action holds the processing flag.
var ErrBusy = errors.New("already processing a message request")

// Generator acquires a message for a request.
type Generator interface {
	Acquire(ctx context.Context, req generate.Request) generate.Result
}

// Outcome is the result of one generate action.
type Outcome struct {
	Status   Status
	Message  string
	Snapshot profile.Snapshot
	Result   generate.Result
	// Target is the resolver's answer; zero when generation failed first.
	Target compose.Target
}

// Inserted reports whether the message landed in the composer.
func (o Outcome) Inserted() bool { return o.Status.Kind == StatusInserted }

// Controller wires the panel to a page.
type Controller struct {
	*Panel

	doc       dom.Document
	gen       Generator
	extractor *extract.Extractor
	resolver  *compose.Resolver
	writer    *compose.Writer
	settings  *settings.Manager
	cooldown  time.Duration
	afterFunc func(time.Duration, func())
}

// Option configures a Controller.
type Option func(*Controller)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

// WithSettings persists the theme and last intent and restores them.
func WithSettings(m *settings.Manager) Option {
	return func(c *Controller) { c.settings = m }
}

func WithExtractor(x *extract.Extractor) Option {
	return func(c *Controller) { c.extractor = x }
}

func WithResolver(r *compose.Resolver) Option {
	return func(c *Controller) { c.resolver = r }
}

// New creates a Controller for doc.
func New(doc dom.Document, gen Generator, opts ...Option) *Controller {
	c := &Controller{
		Panel:     NewPanel(),
		doc:       doc,
		gen:       gen,
		cooldown:  DefaultCooldown,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	for _, o := range opts {
		o(c)
	}
	if c.extractor == nil {
		c.extractor = extract.New(doc)
	}
	if c.resolver == nil {
		c.resolver = compose.NewResolver(doc)
	}
	c.writer = compose.NewWriter(doc)

	if c.settings != nil {
		s, err := c.settings.Get()
		if err != nil {
			slog.Warn("panel: loading settings", "error", err)
		} else {
			c.Panel.SetTheme(s.Theme)
			c.Panel.SetIntent(s.LastIntent)
		}
	}
	return c
}

// Eligible reports whether the current page is a profile.
func (c *Controller) Eligible() bool {
	return IsEligibleProfile(c.doc.URL())
}

// Watch shows the panel on profile pages and hides it elsewhere, now and
// on every route change.
func (c *Controller) Watch(rw dom.RouteWatcher) (cancel func()) {
	c.applyRoute(c.doc.URL())
	return rw.OnRouteChange(c.applyRoute)
}

func (c *Controller) applyRoute(url string) {
	if IsEligibleProfile(url) {
		c.Show()
	} else {
		c.Hide()
	}
}

// SetTheme sets and persists the theme.
func (c *Controller) SetTheme(theme string) {
	c.Panel.SetTheme(theme)
	c.persist(settings.KeyTheme, c.Snapshot().Theme)
}

// ToggleTheme switches and persists the theme.
func (c *Controller) ToggleTheme() string {
	theme := c.Panel.ToggleTheme()
	c.persist(settings.KeyTheme, theme)
	return theme
}

// SetIntent sets and persists the last intent.
func (c *Controller) SetIntent(intent string) {
	c.Panel.SetIntent(intent)
	c.persist(settings.KeyLastIntent, c.Snapshot().LastIntent)
}

func (c *Controller) persist(key, value string) {
	if c.settings == nil {
		return
	}
	if err := c.settings.Set(key, value); err != nil {
		slog.Warn("panel: saving setting", "key", key, "error", err)
	}
}

// Scrape extracts the current page.
func (c *Controller) Scrape() profile.Snapshot {
	return c.extractor.Snapshot()
}

// Generate runs one generate action with the controller's cooldown.
func (c *Controller) Generate(ctx context.Context, intent string) (Outcome, error) {
	return c.GenerateWithCooldown(ctx, intent, c.cooldown)
}

// GenerateWithCooldown scrapes the page, acquires a message, opens the
// composer and inserts the message. It returns ErrBusy while another
// action runs. The processing flag is released cooldown after the action
// ends, whatever its outcome.
func (c *Controller) GenerateWithCooldown(ctx context.Context, intent string, cooldown time.Duration) (Outcome, error) {
	if !c.TryBeginProcessing() {
		return Outcome{}, ErrBusy
	}
	defer c.release(cooldown)

	c.SetStatus(generating())
	intent = strings.TrimSpace(intent)
	c.SetIntent(intent)

	out := Outcome{Snapshot: c.Scrape()}
	out.Result = c.gen.Acquire(ctx, generate.Request{
		Intent:          intent,
		ProfileInfo:     out.Snapshot.Info,
		ExtendedProfile: out.Snapshot.Extended,
		URL:             out.Snapshot.URL,
	})
	if !out.Result.OK {
		return c.finish(out, backendFailed(out.Result.Error)), nil
	}
	out.Message = out.Result.Content

	out.Target = c.resolver.Resolve(ctx)
	if !out.Target.Open() {
		return c.finish(out, openFailed(out.Target.Failure())), nil
	}
	if !c.writer.Inject(out.Message, out.Target.Container) {
		return c.finish(out, inputNotFound()), nil
	}
	return c.finish(out, inserted(out.Snapshot.Info.Name)), nil
}

func (c *Controller) finish(out Outcome, st Status) Outcome {
	out.Status = st
	c.SetStatus(st)
	if st.Warning() {
		slog.Warn("panel: generate ended", "status", string(st.Kind), "detail", st.Text)
	} else {
		slog.Info("panel: message inserted", "profile", out.Snapshot.Info.Name, "source", string(out.Result.Source))
	}
	return out
}

func (c *Controller) release(cooldown time.Duration) {
	if cooldown <= 0 {
		c.SetProcessing(false)
		return
	}
	c.afterFunc(cooldown, func() { c.SetProcessing(false) })
}
