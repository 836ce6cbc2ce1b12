package generate

import (
	"context"
	"errors"
	"strings"

	"github.com/kalambet/genreach/internal/ollama"
	"github.com/kalambet/genreach/internal/proxy"
)

// ErrNoModelKey is returned by a ModelTier built without a client.
var ErrNoModelKey = errors.New("OpenRouter key not set")

const (
	maxTokens   = 320
	temperature = 0.85
)

// Completer is a chat completion source. Implemented by proxy.Client and
// by OllamaCompleter.
type Completer interface {
	Complete(ctx context.Context, req proxy.CompletionRequest) (string, error)
}

// ModelTier asks a model directly with the outreach prompt.
type ModelTier struct {
	client Completer
	model  string
}

// NewModelTier creates the tier. A nil client makes every call fail with
// ErrNoModelKey, so callers can build the chain the same way whether or not
// a key is configured.
func NewModelTier(client Completer, model string) *ModelTier {
	return &ModelTier{client: client, model: model}
}

func (m *ModelTier) Name() Source { return SourceModel }

func (m *ModelTier) Generate(ctx context.Context, req Request) (string, error) {
	if m.client == nil {
		return "", ErrNoModelKey
	}
	return m.Write(ctx, req)
}

// Write runs the completion and cleans the reply.
func (m *ModelTier) Write(ctx context.Context, req Request) (string, error) {
	text, err := m.client.Complete(ctx, CompletionRequest(m.model, req))
	if err != nil {
		return "", err
	}
	text = CleanCompletion(text)
	if text == "" {
		return "", proxy.ErrEmptyCompletion
	}
	return text, nil
}

// CompletionRequest builds the chat request for req.
func CompletionRequest(model string, req Request) proxy.CompletionRequest {
	return proxy.CompletionRequest{
		Model: model,
		Messages: []proxy.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserContent(req)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

var quotePairs = [][2]string{
	{"`", "`"},
	{`"`, `"`},
	{"'", "'"},
	{"“", "”"},
	{"‘", "’"},
	{"«", "»"},
}

// CleanCompletion collapses whitespace and strips one pair of surrounding
// quotes or backticks.
func CleanCompletion(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, p := range quotePairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}

// OllamaCompleter adapts a local Ollama model to Completer.
type OllamaCompleter struct {
	Client *ollama.Client
	Model  string
}

func (o OllamaCompleter) Complete(ctx context.Context, req proxy.CompletionRequest) (string, error) {
	msgs := make([]ollama.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	return o.Client.Chat(ctx, o.Model, msgs, &ollama.Options{
		Temperature: req.Temperature,
		NumPredict:  req.MaxTokens,
	})
}
