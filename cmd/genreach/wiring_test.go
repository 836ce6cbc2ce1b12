package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/genreach/internal/config"
	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/settings"
)

func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprint(w, `{"models":[{"name":"phi3.5:latest"}]}`)
		case "/api/chat":
			fmt.Fprint(w, `{"message":{"role":"assistant","content":"Hello friend, let's chat soon?"},"done":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func noKeyConfig(ollamaURL string) config.Config {
	var cfg config.Config
	cfg.Storage.DataDir = ":memory:"
	cfg.Generate.TierTimeout = 2 * time.Second
	cfg.Ollama.BaseURL = ollamaURL
	cfg.Ollama.Model = "phi3.5"
	return cfg
}

func TestOpenDeps_NoKeyFallsBackToLocalTemplate(t *testing.T) {
	srv := fakeOllama(t)

	d, err := openDeps(context.Background(), noKeyConfig(srv.URL), false, io.Discard)
	if err != nil {
		t.Fatalf("openDeps: %v", err)
	}
	defer d.Close()

	res := d.chain.Acquire(context.Background(), generate.Request{
		ProfileInfo: profile.Info{Name: "John Smith", Title: "PM", Company: "Acme"},
	})
	if !res.OK || res.Source != generate.SourceLocal {
		t.Fatalf("source = %s, content = %q; want local", res.Source, res.Content)
	}
	if !strings.Contains(res.Content, "John") || !strings.Contains(res.Content, "PM at Acme") {
		t.Errorf("content = %q", res.Content)
	}
	for _, a := range res.Attempts {
		if a.Tier == generate.SourceModel {
			t.Errorf("model tier attempted without an API key: %+v", a)
		}
	}
}

func TestOpenDeps_LocalModelServesWriterOnly(t *testing.T) {
	srv := fakeOllama(t)

	d, err := openDeps(context.Background(), noKeyConfig(srv.URL), false, io.Discard)
	if err != nil {
		t.Fatalf("openDeps: %v", err)
	}
	defer d.Close()

	w := d.writer()
	if w == nil {
		t.Fatal("writer() = nil with Ollama running")
	}
	got, err := w.Write(context.Background(), generate.Request{
		ProfileInfo: profile.Info{Name: "John Smith"},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != "Hello friend, let's chat soon?" {
		t.Errorf("Write = %q", got)
	}
}

func TestOpenDeps_KeyAddsModelTier(t *testing.T) {
	router := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"Hi John, from the model."}}]}`)
	}))
	defer router.Close()

	cfg := noKeyConfig("")
	cfg.Model.APIKey = "k"
	cfg.Model.BaseURL = router.URL
	cfg.Model.ID = "m"

	d, err := openDeps(context.Background(), cfg, false, io.Discard)
	if err != nil {
		t.Fatalf("openDeps: %v", err)
	}
	defer d.Close()

	res := d.chain.Acquire(context.Background(), generate.Request{
		ProfileInfo: profile.Info{Name: "John Smith"},
	})
	if res.Source != generate.SourceModel || res.Content != "Hi John, from the model." {
		t.Errorf("Acquire = %s %q, want direct-model", res.Source, res.Content)
	}
}

func fakeBackend(t *testing.T, message string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"message":%q}`, message)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenDeps_BackendURLPrecedence(t *testing.T) {
	configured := fakeBackend(t, "from config")
	persisted := fakeBackend(t, "from settings")

	tests := []struct {
		name       string
		configURL  string
		settingURL string
		want       string
	}{
		{"config wins", configured.URL, persisted.URL, "from config"},
		{"setting is the fallback", "", persisted.URL, "from settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := noKeyConfig("http://127.0.0.1:1")
			cfg.Backend.URL = tt.configURL
			d, err := openDeps(context.Background(), cfg, false, io.Discard)
			if err != nil {
				t.Fatalf("openDeps: %v", err)
			}
			defer d.Close()
			if err := d.settings.Set(settings.KeyBackendURL, tt.settingURL); err != nil {
				t.Fatal(err)
			}

			res := d.chain.Acquire(context.Background(), generate.Request{})
			if res.Source != generate.SourceBackend || res.Content != tt.want {
				t.Errorf("Acquire = %s %q, want backend %q", res.Source, res.Content, tt.want)
			}
		})
	}
}
