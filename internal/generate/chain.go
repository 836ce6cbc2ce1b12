package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/genreach/internal/storage"
)

// DefaultTierTimeout bounds a single tier call.
const DefaultTierTimeout = 30 * time.Second

var errEmptyContent = errors.New("empty content")

// Tier is one message source.
type Tier interface {
	Name() Source
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerationLog persists acquired messages. Implemented by storage.Store.
type GenerationLog interface {
	SaveGeneration(g storage.Generation) error
}

// Chain tries tiers in order and falls back to the local template, so
// Acquire always yields a message.
type Chain struct {
	tiers   []Tier
	timeout time.Duration
	log     GenerationLog
	now     func() time.Time
}

// Option configures a Chain.
type Option func(*Chain)

// WithTierTimeout bounds each tier call. Non-positive values are ignored.
func WithTierTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithGenerationLog records every acquired message.
func WithGenerationLog(l GenerationLog) Option {
	return func(c *Chain) { c.log = l }
}

// NewChain builds a chain over the network tiers given, in priority order.
// Nil tiers are skipped. The local template is always the last resort.
func NewChain(tiers []Tier, opts ...Option) *Chain {
	c := &Chain{timeout: DefaultTierTimeout, now: time.Now}
	for _, t := range tiers {
		if t != nil {
			c.tiers = append(c.tiers, t)
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Acquire returns the first message any tier produces.
func (c *Chain) Acquire(ctx context.Context, req Request) Result {
	res := Result{OK: true, Attempts: []Attempt{}}
	for _, t := range c.tiers {
		start := c.now()
		content, err := c.call(ctx, t, req)
		a := Attempt{Tier: t.Name(), Duration: c.now().Sub(start)}
		if err == nil && strings.TrimSpace(content) == "" {
			err = errEmptyContent
		}
		if err != nil {
			a.Error = err.Error()
			res.Attempts = append(res.Attempts, a)
			res.Error = a.Error
			slog.Warn("generate: tier failed", "tier", string(t.Name()), "error", err)
			continue
		}
		res.Attempts = append(res.Attempts, a)
		res.Content = content
		res.Source = t.Name()
		res.Error = ""
		res.GenerationID = c.record(req, res)
		return res
	}

	res.Content = Fabricate(req)
	res.Source = SourceLocal
	res.Attempts = append(res.Attempts, Attempt{Tier: SourceLocal})
	res.GenerationID = c.record(req, res)
	return res
}

// call runs one tier under the tier timeout, turning a panic into an error.
func (c *Chain) call(ctx context.Context, t Tier, req Request) (content string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s tier panicked: %v", t.Name(), r)
		}
	}()
	return t.Generate(ctx, req)
}

// record saves res to the generation log and returns its ID, or "" when
// nothing was saved.
func (c *Chain) record(req Request, res Result) string {
	if c.log == nil {
		return ""
	}
	attempts, err := json.Marshal(res.Attempts)
	if err != nil {
		attempts = []byte("[]")
	}
	g := storage.Generation{
		ID:          uuid.New().String(),
		CreatedAt:   c.now().UTC(),
		ProfileName: req.ProfileInfo.Name,
		ProfileURL:  req.URL,
		Intent:      req.Intent,
		Source:      string(res.Source),
		Content:     res.Content,
		Attempts:    attempts,
	}
	if err := c.log.SaveGeneration(g); err != nil {
		slog.Warn("generate: saving generation", "error", err)
		return ""
	}
	return g.ID
}
