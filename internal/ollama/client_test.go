package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tagsJSON(names ...string) []byte {
	var r tagsResponse
	for _, n := range names {
		r.Models = append(r.Models, struct {
			Name string `json:"name"`
		}{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func closedServerURL() string {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	return srv.URL
}

func TestIsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("phi3.5:latest"))
	}))
	defer srv.Close()

	if !New(srv.URL).IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
	if New(closedServerURL()).IsRunning(context.Background()) {
		t.Error("IsRunning() on a closed server = true")
	}
}

func TestHasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("phi3.5:latest", "llama3.2:3b"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	tests := map[string]bool{
		"phi3.5":      true,
		"llama3.2:3b": true,
		"llama3.2":    true,
		"mistral":     false,
	}
	for name, want := range tests {
		if got := c.HasModel(context.Background(), name); got != want {
			t.Errorf("HasModel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "Hi Ada"}})
	}))
	defer srv.Close()

	reply, err := New(srv.URL).Chat(context.Background(), "phi3.5",
		[]Message{{Role: "user", Content: "write"}},
		&Options{Temperature: 0.85, NumPredict: 320})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Hi Ada" {
		t.Errorf("reply = %q", reply)
	}
	if got.Stream || got.Options == nil || got.Options.NumPredict != 320 {
		t.Errorf("request = %+v", got)
	}
}

func TestChat_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'phi3.5' not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "phi3.5", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestPullModel_Progress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req pullRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "phi3.5" || !req.Stream {
			t.Errorf("pull request = %+v", req)
		}
		enc := json.NewEncoder(w)
		enc.Encode(PullProgress{Status: "downloading", Total: 1000, Completed: 500})
		enc.Encode(PullProgress{Status: "success"})
	}))
	defer srv.Close()

	var n int
	if err := New(srv.URL).PullModel(context.Background(), "phi3.5", func(PullProgress) { n++ }); err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if n != 2 {
		t.Errorf("progress updates = %d, want 2", n)
	}
}

func TestEnsureReady(t *testing.T) {
	var pulled, warmed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			if pulled {
				w.Write(tagsJSON("phi3.5:latest"))
				return
			}
			w.Write(tagsJSON())
		case "/api/pull":
			pulled = true
			json.NewEncoder(w).Encode(PullProgress{Status: "success"})
		case "/api/chat":
			warmed = true
			json.NewEncoder(w).Encode(chatResponse{Message: Message{Content: "pong"}})
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := EnsureReady(context.Background(), New(srv.URL), "phi3.5", &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if !pulled || !warmed {
		t.Errorf("pulled = %v, warmed = %v", pulled, warmed)
	}
	if !strings.Contains(out.String(), "model phi3.5: warm") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnsureReady_OllamaDown(t *testing.T) {
	err := EnsureReady(context.Background(), New(closedServerURL()), "phi3.5", &bytes.Buffer{})
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}
}
