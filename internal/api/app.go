package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/genreach/internal/ingest"
	"github.com/kalambet/genreach/internal/runtime"
	"github.com/kalambet/genreach/internal/settings"
	"github.com/kalambet/genreach/internal/storage"
)

const defaultListLimit = 20

// AppDeps holds what the server routes need. Writer and Models may be nil.
type AppDeps struct {
	Store    *storage.Store
	Settings *settings.Manager
	Runtime  *runtime.Dispatcher
	Writer   MessageWriter
	Models   ModelLister
	Token    string
}

// BatchRequest queues profile files for message generation.
type BatchRequest struct {
	Paths  []string `json:"paths"`
	Intent string   `json:"intent"`
}

// NewAppHandler returns the full server: the open backend routes plus the
// runtime, generation log, batch and settings routes behind BearerAuth.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	mountBackend(r, deps.Writer, deps.Models)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		if deps.Runtime != nil {
			r.With(RequireJSON).Post("/runtime/message", deps.Runtime.HTTPHandler())
			r.Get("/runtime/ws", deps.Runtime.WebSocketHandler())
		}
		r.Get("/generations", handleListGenerations(deps))
		r.Get("/generations/{id}", handleGetGeneration(deps))
		r.With(RequireJSON).Post("/batch", handleEnqueueBatch(deps))
		r.Get("/batch", handleListBatch(deps))
		r.Get("/batch/{id}", handleGetBatchJob(deps))
		r.Get("/settings", handleGetSettings(deps))
		r.With(RequireJSON).Patch("/settings", handlePatchSettings(deps))
	})

	return r
}

func limitParam(r *http.Request) int {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

func handleListGenerations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gens, err := deps.Store.RecentGenerations(limitParam(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list generations: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, gens)
	}
}

func handleGetGeneration(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := deps.Store.GetGeneration(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get generation: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleEnqueueBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Paths) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "paths is required")
			return
		}

		ids, err := ingest.Enqueue(deps.Store, req.Paths, req.Intent)
		if errors.Is(err, ingest.ErrUnsupportedFile) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue batch: %v", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"jobs": ids})
	}
}

func handleListBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := deps.Store.ListJobs(r.URL.Query().Get("status"), limitParam(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list jobs: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func handleGetBatchJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := deps.Store.GetJob(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

type settingsView struct {
	BackendURL string `json:"backend_url"`
	LastIntent string `json:"last_intent"`
	Theme      string `json:"theme"`
}

func handleGetSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Settings.Get()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load settings: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, settingsView{BackendURL: s.BackendURL, LastIntent: s.LastIntent, Theme: s.Theme})
	}
}

func handlePatchSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var patch map[string]string
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		for k, v := range patch {
			if err := deps.Settings.Set(k, v); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
		}
		handleGetSettings(deps)(w, r)
	}
}
