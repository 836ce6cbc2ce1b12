// Package ingest runs batch outreach: profile snapshots queued as jobs are
// loaded, turned into a generation request and passed through the
// acquisition chain.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/genreach/internal/dom/htmldom"
	"github.com/kalambet/genreach/internal/extract"
	"github.com/kalambet/genreach/internal/generate"
	"github.com/kalambet/genreach/internal/pdfprofile"
	"github.com/kalambet/genreach/internal/profile"
	"github.com/kalambet/genreach/internal/storage"
)

// JobType is the queue type of a batch generation job.
const JobType = "generate_message"

// ErrUnsupportedFile is returned for paths that are neither an HTML
// snapshot nor a PDF export.
var ErrUnsupportedFile = errors.New("unsupported profile file")

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id, result string) error
	FailJob(id string, errMsg string) error
}

// Queue is the enqueue side of the job store.
type Queue interface {
	EnqueueJob(job storage.Job) (string, error)
}

// Generator acquires a message for a request.
type Generator interface {
	Acquire(ctx context.Context, req generate.Request) generate.Result
}

// Payload is the JSON payload of a generate_message job.
type Payload struct {
	Path   string `json:"path"`
	Intent string `json:"intent,omitempty"`
}

// Enqueue validates paths and adds one job per file. Nothing is enqueued
// when any path is unsupported.
func Enqueue(q Queue, paths []string, intent string) ([]string, error) {
	for _, p := range paths {
		if _, err := kind(p); err != nil {
			return nil, err
		}
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return ids, fmt.Errorf("resolving %s: %w", p, err)
		}
		payload, err := json.Marshal(Payload{Path: abs, Intent: intent})
		if err != nil {
			return ids, fmt.Errorf("marshaling payload: %w", err)
		}
		id, err := q.EnqueueJob(storage.Job{Type: JobType, PayloadJSON: string(payload)})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type fileKind int

const (
	htmlFile fileKind = iota
	pdfFile
)

func kind(path string) (fileKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return htmlFile, nil
	case ".pdf":
		return pdfFile, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}

// LoadSnapshot reads a saved profile page or a PDF export.
func LoadSnapshot(path string, maxPosts int) (profile.Snapshot, error) {
	k, err := kind(path)
	if err != nil {
		return profile.Snapshot{}, err
	}
	if k == pdfFile {
		return pdfprofile.Open(path)
	}
	doc, err := htmldom.Open(path)
	if err != nil {
		return profile.Snapshot{}, err
	}
	return extract.New(doc, extract.WithMaxPosts(maxPosts)).Snapshot(), nil
}

// Worker processes generate_message jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	gen      Generator
	poll     time.Duration
	maxPosts int
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, gen Generator, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		gen:      gen,
		poll:     pollInterval,
		maxPosts: extract.DefaultMaxPosts,
		logger:   slog.Default(),
	}
}

// SetMaxPosts sets the recent-post cap used when reading snapshots.
func (w *Worker) SetMaxPosts(n int) { w.maxPosts = n }

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single generate_message job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	result, err := w.processJob(ctx, job)
	if err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID, result); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

// processJob returns the generation ID, or the message itself when the
// generation log is not wired.
func (w *Worker) processJob(ctx context.Context, job *storage.Job) (string, error) {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return "", fmt.Errorf("parsing payload: %w", err)
	}

	snap, err := LoadSnapshot(payload.Path, w.maxPosts)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", payload.Path, err)
	}
	if snap.Info.Name == "" {
		return "", fmt.Errorf("no profile found in %s", payload.Path)
	}

	res := w.gen.Acquire(ctx, generate.Request{
		Intent:          payload.Intent,
		ProfileInfo:     snap.Info,
		ExtendedProfile: snap.Extended,
		URL:             snap.URL,
	})
	w.logger.Info("batch message generated", "job_id", job.ID, "profile", snap.Info.Name, "source", string(res.Source))
	if res.GenerationID != "" {
		return res.GenerationID, nil
	}
	return res.Content, nil
}
