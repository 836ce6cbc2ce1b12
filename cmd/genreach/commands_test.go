package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/genreach/internal/config"
	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/ingest"
	"github.com/kalambet/genreach/internal/runtime"
	"github.com/kalambet/genreach/internal/settings"
	"github.com/kalambet/genreach/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

const adaPage = `<html><head><link rel="canonical" href="https://www.linkedin.com/in/ada/"></head>
<body><section class="pv-top-card"><h1>Ada Lovelace</h1>
<div class="text-body-medium break-words">Analyst at Engine Co</div></section>
%s</body></html>`

const openBubble = `<div class="msg-overlay-conversation-bubble"><div class="msg-form">
<div class="msg-form__contenteditable" contenteditable="true" data-artdeco-is-empty="true"><p></p></div>
</div></div>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func adaSnapshot(t *testing.T, extra string) string {
	return writeFile(t, "ada.html", strings.Replace(adaPage, "%s", extra, 1))
}

func TestListGenerations(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /generations": `[{"id":"g-1","createdAt":"2026-03-01T10:00:00Z","profileName":"Ada Lovelace","source":"backend","content":"Hi Ada,\nsecond line"}]`,
	})

	var out bytes.Buffer
	noColor = true
	defer func() { noColor = false }()
	if err := listGenerations(ctx, ts.client(), 5, &out); err != nil {
		t.Fatalf("listGenerations: %v", err)
	}

	if len(ts.requests) != 1 || ts.requests[0].Path != "/generations?limit=5" {
		t.Fatalf("requests = %+v", ts.requests)
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", ts.requests[0].Auth)
	}
	got := out.String()
	if !strings.Contains(got, "g-1") || !strings.Contains(got, "Ada Lovelace") {
		t.Errorf("output = %q", got)
	}
	if strings.Contains(got, "second line") {
		t.Error("only the first line of the content should be listed")
	}
}

func TestQueueBatch(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /batch": `{"jobs":["job-1","job-2"]}`,
	})

	ids, err := queueBatch(ctx, ts.client(), []string{"ada.html", "/tmp/grace.pdf"}, "hiring")
	if err != nil {
		t.Fatalf("queueBatch: %v", err)
	}
	if len(ids) != 2 || ids[0] != "job-1" {
		t.Errorf("ids = %v", ids)
	}

	var body struct {
		Paths  []string `json:"paths"`
		Intent string   `json:"intent"`
	}
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatal(err)
	}
	if body.Intent != "hiring" || len(body.Paths) != 2 {
		t.Fatalf("body = %+v", body)
	}
	for _, p := range body.Paths {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q is not absolute", p)
		}
	}
}

func TestListJobs_StatusFilter(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /batch": `[{"id":"job-1","status":"failed","attempts":3,"maxAttempts":3,"lastError":"no profile found"}]`,
	})

	noColor = true
	defer func() { noColor = false }()
	var out bytes.Buffer
	if err := listJobs(ctx, ts.client(), "failed", 10, &out); err != nil {
		t.Fatalf("listJobs: %v", err)
	}
	if ts.requests[0].Path != "/batch?limit=10&status=failed" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
	if !strings.Contains(out.String(), "attempts 3/3") || !strings.Contains(out.String(), "no profile found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestShowJob_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	err := showJob(ctx, ts.client(), "missing", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want 404", err)
	}
}

func TestSendAction(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /runtime/message": `{"success":true,"message":"Hi Ada"}`,
	})

	var out bytes.Buffer
	req := runtime.Request{Action: runtime.ActionGenerateMessage, Intent: "networking"}
	if err := sendAction(ctx, ts.client(), req, &out); err != nil {
		t.Fatalf("sendAction: %v", err)
	}

	var sent runtime.Request
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &sent); err != nil {
		t.Fatal(err)
	}
	if sent.Action != "generateMessage" || sent.Intent != "networking" {
		t.Errorf("sent = %+v", sent)
	}
	if !strings.Contains(out.String(), `"message": "Hi Ada"`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestSetSetting(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /settings": `{"backend_url":"","last_intent":"","theme":"dark"}`,
	})
	if err := setSetting(ctx, ts.client(), "theme", "dark"); err != nil {
		t.Fatalf("setSetting: %v", err)
	}
	if ts.requests[0].Method != "PATCH" || ts.requests[0].Body != `{"theme":"dark"}` {
		t.Errorf("request = %+v", ts.requests[0])
	}
}

func TestDecodeJSON_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid or missing bearer token","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "bad-token", httpClient: ts.Client()}
	resp, err := client.get(ctx, "/generations")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want it to contain 401", err)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{"GET /settings": `{}`})
	c := ts.client()
	c.token = ""
	resp, err := c.get(ctx, "/settings")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if ts.requests[0].Auth != "" {
		t.Errorf("Authorization = %q, want none", ts.requests[0].Auth)
	}
}

func TestLoadSnapshots_KeepsOrder(t *testing.T) {
	ada := adaSnapshot(t, "")
	grace := writeFile(t, "grace.html", `<html><body><section class="pv-top-card"><h1>Grace Hopper</h1></section></body></html>`)

	snaps, err := loadSnapshots(ctx, []string{grace, ada, grace}, 5)
	if err != nil {
		t.Fatalf("loadSnapshots: %v", err)
	}
	names := []string{snaps[0].Info.Name, snaps[1].Info.Name, snaps[2].Info.Name}
	if names[0] != "Grace Hopper" || names[1] != "Ada Lovelace" || names[2] != "Grace Hopper" {
		t.Errorf("names = %v", names)
	}
}

func TestLoadSnapshots_Unsupported(t *testing.T) {
	_, err := loadSnapshots(ctx, []string{adaSnapshot(t, ""), "notes.txt"}, 5)
	if !errors.Is(err, ingest.ErrUnsupportedFile) {
		t.Errorf("err = %v, want ErrUnsupportedFile", err)
	}
}

type fakeAcquirer struct{ got generate.Request }

func (f *fakeAcquirer) Acquire(_ context.Context, req generate.Request) generate.Result {
	f.got = req
	return generate.Result{OK: true, Content: "Hi Ada, hello.", Source: generate.SourceBackend}
}

func TestGenerateForFile(t *testing.T) {
	gen := &fakeAcquirer{}
	var out bytes.Buffer
	if err := generateForFile(ctx, gen, adaSnapshot(t, ""), "networking", 5, &out); err != nil {
		t.Fatalf("generateForFile: %v", err)
	}
	if out.String() != "Hi Ada, hello.\n" {
		t.Errorf("output = %q", out.String())
	}
	if gen.got.Intent != "networking" || gen.got.ProfileInfo.Name != "Ada Lovelace" {
		t.Errorf("request = %+v", gen.got)
	}
	if gen.got.URL != "https://www.linkedin.com/in/ada/" {
		t.Errorf("URL = %q", gen.got.URL)
	}
}

func testDeps(t *testing.T) *deps {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	var cfg config.Config
	cfg.Extract.MaxPosts = 5
	return &deps{
		cfg:      cfg,
		store:    store,
		settings: settings.NewManager(store),
		chain:    generate.NewChain(nil, generate.WithGenerationLog(store)),
	}
}

func TestInjectIntoSnapshot(t *testing.T) {
	d := testDeps(t)
	src := adaSnapshot(t, openBubble)
	dst := filepath.Join(t.TempDir(), "sent.html")

	var out bytes.Buffer
	if err := injectIntoSnapshot(ctx, d, src, "networking", dst, &out); err != nil {
		t.Fatalf("injectIntoSnapshot: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Hi Ada,") {
		t.Errorf("message = %q", out.String())
	}

	saved, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(saved), "Hi Ada,") || !strings.Contains(string(saved), `data-artdeco-is-empty="false"`) {
		t.Errorf("saved page does not contain the injected message")
	}

	gens, err := d.store.RecentGenerations(1)
	if err != nil || len(gens) != 1 || gens[0].Intent != "networking" {
		t.Errorf("generation log = %+v, %v", gens, err)
	}
	if s, _ := d.settings.Get(); s.LastIntent != "networking" {
		t.Errorf("last intent = %q", s.LastIntent)
	}
}

func TestInjectIntoSnapshot_RequiresHTML(t *testing.T) {
	d := testDeps(t)
	err := injectIntoSnapshot(ctx, d, "ada.pdf", "", filepath.Join(t.TempDir(), "x.html"), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "HTML snapshot") {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateCommand_RequiresSnapshot(t *testing.T) {
	defer rootCmd.SetArgs(nil)
	rootCmd.SetArgs([]string{"generate"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--snapshot is required") {
		t.Errorf("err = %v", err)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorRed, "x"); got != "x" {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", got)
	}
	noColor = false
	if got := colorize(colorRed, "x"); !strings.Contains(got, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4100
	cfg.Model.APIKey = "sk-secret"

	for _, k := range config.ShowAll(cfg) {
		if strings.Contains(k.Value, "sk-secret") {
			t.Errorf("secret leaked through %s", k.Key)
		}
	}
}

func TestAPIKeyStatus(t *testing.T) {
	var cfg config.Config
	if got := apiKeyStatus(cfg); !strings.HasPrefix(got, "not set (") || !strings.Contains(got, "GENREACH_OPENROUTER_API_KEY") {
		t.Errorf("no key: %q", got)
	}
	cfg.Model.APIKey = "sk-secret"
	cfg.Model.KeySource = config.KeyFromKeychain
	if got := apiKeyStatus(cfg); got != "set (keychain)" {
		t.Errorf("keychain: %q", got)
	}
	cfg.Model.KeySource = config.KeyFromEnv
	if got := apiKeyStatus(cfg); got != "set (environment)" || strings.Contains(got, "sk-secret") {
		t.Errorf("env: %q", got)
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		count, limit int
		want         string
	}{
		{5, 100, "5"},
		{0, 100, "0"},
		{100, 100, "100+"},
		{150, 100, "150+"},
	}
	for _, tt := range tests {
		if got := countLabel(tt.count, tt.limit); got != tt.want {
			t.Errorf("countLabel(%d, %d) = %q, want %q", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("Hi Ada,\nmore", 100); got != "Hi Ada," {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine("abcdef", 3); got != "abc…" {
		t.Errorf("firstLine = %q", got)
	}
}
