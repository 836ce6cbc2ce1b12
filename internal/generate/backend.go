package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrBackendURLNotSet is returned when no backend URL is configured.
var ErrBackendURLNotSet = errors.New("Backend URL not set")

// ErrMalformedBackendResponse is returned when the backend answers 2xx
// without a string message.
var ErrMalformedBackendResponse = errors.New("Malformed backend response")

const maxErrorRunes = 200

// BackendTier posts the request to {url}/api/generate. The URL is read on
// every call so settings changes apply immediately.
type BackendTier struct {
	url    func() string
	client *http.Client
}

// NewBackendTier creates the tier. A nil client uses http.DefaultClient.
func NewBackendTier(url func() string, client *http.Client) *BackendTier {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendTier{url: url, client: client}
}

// FirstURL returns a URL source yielding the first non-blank value of srcs.
func FirstURL(srcs ...func() string) func() string {
	return func() string {
		for _, src := range srcs {
			if src == nil {
				continue
			}
			if u := strings.TrimSpace(src()); u != "" {
				return u
			}
		}
		return ""
	}
}

func (b *BackendTier) Name() Source { return SourceBackend }

func (b *BackendTier) Generate(ctx context.Context, req Request) (string, error) {
	base := ""
	if b.url != nil {
		base = strings.TrimSpace(b.url())
	}
	if base == "" {
		return "", ErrBackendURLNotSet
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4*maxErrorRunes))
		return "", fmt.Errorf("Backend error %d: %s", resp.StatusCode, truncateRunes(string(text), maxErrorRunes))
	}

	var out struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", ErrMalformedBackendResponse
	}
	var msg string
	if len(out.Message) == 0 || out.Message[0] != '"' || json.Unmarshal(out.Message, &msg) != nil {
		return "", ErrMalformedBackendResponse
	}
	return msg, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
