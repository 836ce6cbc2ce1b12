package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kalambet/genreach/internal/api"
	"github.com/kalambet/genreach/internal/compose"
	"github.com/kalambet/genreach/internal/config"
	"github.com/kalambet/genreach/internal/dom"
	"github.com/kalambet/genreach/internal/extract"
	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/ollama"
	"github.com/kalambet/genreach/internal/panel"
	"github.com/kalambet/genreach/internal/probe"
	"github.com/kalambet/genreach/internal/proxy"
	"github.com/kalambet/genreach/internal/settings"
	"github.com/kalambet/genreach/internal/storage"
)

// deps is everything a command needs to acquire messages locally.
type deps struct {
	cfg      config.Config
	store    *storage.Store
	settings *settings.Manager
	chain    *generate.Chain

	// model is nil when neither an OpenRouter key nor a local model is usable.
	// It joins the chain only with an OpenRouter key; a local Ollama model
	// serves /api/generate alone.
	model  *generate.ModelTier
	models api.ModelLister
}

// openDeps opens storage and builds the acquisition chain. When warm is
// set and no OpenRouter key is configured, the local Ollama model behind
// /api/generate is pulled and warmed with progress written to w.
func openDeps(ctx context.Context, cfg config.Config, warm bool, w io.Writer) (*deps, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	d := &deps{cfg: cfg, store: store, settings: settings.NewManager(store)}
	d.model, d.models = modelSource(ctx, cfg, warm, w)

	// The configured backend.url wins; the persisted backend_url setting
	// is the fallback when it is set to "".
	backend := generate.NewBackendTier(
		generate.FirstURL(func() string { return cfg.Backend.URL }, d.settings.BackendURL),
		&http.Client{},
	)
	tiers := []generate.Tier{backend}
	if d.model != nil && cfg.HasModelKey() {
		tiers = append(tiers, d.model)
	}
	d.chain = generate.NewChain(tiers,
		generate.WithTierTimeout(cfg.Generate.TierTimeout),
		generate.WithGenerationLog(store),
	)
	return d, nil
}

func (d *deps) Close() {
	if err := d.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

// writer returns the model tier as the /api/generate writer, or nil.
func (d *deps) writer() api.MessageWriter {
	if d.model == nil {
		return nil
	}
	return d.model
}

// modelSource picks OpenRouter when a key is set and otherwise a local
// Ollama model when the server is up.
func modelSource(ctx context.Context, cfg config.Config, warm bool, w io.Writer) (*generate.ModelTier, api.ModelLister) {
	if cfg.HasModelKey() {
		client := proxy.NewClientWithBaseURL(cfg.Model.APIKey, cfg.Model.BaseURL)
		return generate.NewModelTier(client, cfg.Model.ID), client
	}

	oc := ollama.New(cfg.Ollama.BaseURL)
	if warm {
		if err := ollama.EnsureReady(ctx, oc, cfg.Ollama.Model, w); err != nil {
			slog.Warn("local model unavailable, direct model tier disabled", "error", err)
			return nil, nil
		}
	} else if !oc.IsRunning(ctx) {
		slog.Debug("no OpenRouter key and Ollama not running, direct model tier disabled")
		return nil, nil
	}
	completer := generate.OllamaCompleter{Client: oc, Model: cfg.Ollama.Model}
	return generate.NewModelTier(completer, cfg.Ollama.Model), nil
}

// newController builds the panel controller for doc.
func (d *deps) newController(doc dom.Document) *panel.Controller {
	prober := probe.New(doc,
		probe.WithTimeout(d.cfg.Prober.Timeout),
		probe.WithPollInterval(d.cfg.Prober.PollInterval),
	)
	return panel.New(doc, d.chain,
		panel.WithCooldown(d.cfg.Panel.Cooldown),
		panel.WithSettings(d.settings),
		panel.WithExtractor(extract.New(doc, extract.WithMaxPosts(d.cfg.Extract.MaxPosts))),
		panel.WithResolver(compose.NewResolver(doc, compose.WithProber(prober))),
	)
}
