package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/proxy"
)

const maxRequestBodySize = 1 << 20 // 1MB

// MessageWriter writes a message straight from a model.
// *generate.ModelTier implements it.
type MessageWriter interface {
	Write(ctx context.Context, req generate.Request) (string, error)
}

// ModelLister lists the models available to the configured key.
type ModelLister interface {
	ListModels(ctx context.Context) ([]proxy.Model, error)
}

// NewBackendHandler returns the message backend: the endpoint the backend
// tier of the acquisition chain calls. writer may be nil when neither an
// OpenRouter key nor a local model is configured; models may be nil
// without a key.
func NewBackendHandler(writer MessageWriter, models ModelLister) http.Handler {
	r := chi.NewRouter()
	mountBackend(r, writer, models)
	return r
}

func mountBackend(r chi.Router, writer MessageWriter, models ModelLister) {
	r.Get("/health", handleHealth)
	r.Post("/api/generate", handleGenerate(writer))
	r.Get("/models", handleModels(models))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type generateResponse struct {
	Message string `json:"message"`
}

func handleGenerate(writer MessageWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req generate.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.ExtendedProfile.Normalize()

		if writer == nil {
			httpError(w, http.StatusBadGateway, "api_error", "no model source configured")
			return
		}
		msg, err := writer.Write(r.Context(), req)
		if err != nil {
			slog.Warn("api: generate failed", "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "generation failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, generateResponse{Message: msg})
	}
}

func handleModels(models ModelLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if models == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "OpenRouter key not set")
			return
		}
		list, err := models.ListModels(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to list models: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, proxy.ModelList{Data: list})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
