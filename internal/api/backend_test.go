package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/proxy"
)

type writerFunc func(ctx context.Context, req generate.Request) (string, error)

func (f writerFunc) Write(ctx context.Context, req generate.Request) (string, error) {
	return f(ctx, req)
}

type staticModels struct {
	models []proxy.Model
	err    error
}

func (s staticModels) ListModels(context.Context) ([]proxy.Model, error) { return s.models, s.err }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error.Message
}

func TestBackend_Health(t *testing.T) {
	h := NewBackendHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestBackend_Generate(t *testing.T) {
	var got generate.Request
	h := NewBackendHandler(writerFunc(func(_ context.Context, req generate.Request) (string, error) {
		got = req
		return "Hi Ada, loved your notes on the engine.", nil
	}), nil)

	body := `{"intent":"networking","profileInfo":{"name":"Ada Lovelace","title":"Analyst"},"extendedProfile":{}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "Hi Ada, loved your notes on the engine." {
		t.Errorf("message = %q", resp.Message)
	}
	if got.Intent != "networking" || got.ProfileInfo.Name != "Ada Lovelace" {
		t.Errorf("request = %+v", got)
	}
	if got.ExtendedProfile.Experiences == nil || got.ExtendedProfile.RecentPosts == nil {
		t.Error("extended profile not normalized")
	}
}

func TestBackend_Generate_Errors(t *testing.T) {
	failing := writerFunc(func(context.Context, generate.Request) (string, error) {
		return "", errors.New("upstream down")
	})

	tests := []struct {
		name   string
		writer MessageWriter
		body   string
		status int
		want   string
	}{
		{"bad json", failing, "{", http.StatusBadRequest, "invalid request body"},
		{"no writer", nil, `{"intent":"x"}`, http.StatusBadGateway, "no model source configured"},
		{"writer error", failing, `{"intent":"x"}`, http.StatusBadGateway, "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewBackendHandler(tt.writer, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if msg := decodeError(t, rec); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestBackend_Models(t *testing.T) {
	rec := httptest.NewRecorder()
	NewBackendHandler(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without key: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	lister := staticModels{models: []proxy.Model{{ID: "openai/gpt-4o-mini"}}}
	NewBackendHandler(nil, lister).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list proxy.ModelList
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "openai/gpt-4o-mini" {
		t.Errorf("models = %+v", list.Data)
	}

	rec = httptest.NewRecorder()
	NewBackendHandler(nil, staticModels{err: errors.New("401")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("lister error: status = %d", rec.Code)
	}
}

// The backend tier of the chain must accept what this handler serves.
func TestBackend_ServesBackendTier(t *testing.T) {
	srv := httptest.NewServer(NewBackendHandler(writerFunc(func(_ context.Context, req generate.Request) (string, error) {
		return "Hello " + req.ProfileInfo.FirstName(), nil
	}), nil))
	defer srv.Close()

	tier := generate.NewBackendTier(func() string { return srv.URL }, srv.Client())
	msg, err := tier.Generate(context.Background(), generate.Request{Intent: "hiring"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(msg, "Hello") {
		t.Errorf("msg = %q", msg)
	}
}

func TestBearerAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		token  string
		header string
		status int
	}{
		{"open when no token", "", "", http.StatusNoContent},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "s3cret", "Bearer s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			BearerAuth(tt.token)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
