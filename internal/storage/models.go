package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Generation is one acquired outreach message.
type Generation struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	ProfileName string          `json:"profileName"`
	ProfileURL  string          `json:"profileUrl,omitempty"`
	Intent      string          `json:"intent"`
	Source      string          `json:"source"`
	Content     string          `json:"content"`
	Attempts    json.RawMessage `json:"attempts"`
}

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is a queued unit of background work.
type Job struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	PayloadJSON string    `json:"payload"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	RunAfter    time.Time `json:"runAfter"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastError   string    `json:"lastError,omitempty"`
	Result      string    `json:"result,omitempty"`
}
