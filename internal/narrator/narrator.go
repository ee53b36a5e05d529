// Package narrator produces the narrative text shown for an adventure event.
//
// A [Provider] may be slow or fail; callers are expected to bound it with a
// context deadline and fall back to the event's static prompt. [Template] is
// deterministic and never fails. [Gemini] and [OpenAI] call a hosted language
// model. [New] picks one at construction time.
package narrator

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/Porkelson/dnd-project/internal/models"
)

//go:embed prompts/describe_event.txt
var describeEventPrompt string

var describeEventTmpl = template.Must(template.New("describe_event").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(describeEventPrompt))

// Provider generates a description of event for a player in state.
type Provider interface {
	Generate(ctx context.Context, event models.AdventureEvent, state models.PlayerState) (string, error)
}

// Backend names a Provider implementation.
type Backend string

const (
	BackendTemplate Backend = "template"
	BackendGemini   Backend = "gemini"
	BackendOpenAI   Backend = "openai"
)

// IsValid reports whether b is a known backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendTemplate, BackendGemini, BackendOpenAI:
		return true
	}
	return false
}

// Options configures [New].
type Options struct {
	Backend Backend

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// RequestTimeout bounds a single HTTP request to a hosted model.
	RequestTimeout time.Duration
}

// New builds the provider selected by opts.Backend. Hosted backends are
// wrapped in a [Fallback] that ends with [Template], so a dead backend
// degrades to deterministic text. The returned provider should be released
// with [Close].
func New(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Backend {
	case "", BackendTemplate:
		return Template{}, nil
	case BackendGemini:
		g, err := NewGemini(ctx, opts.GeminiAPIKey, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewFallback(Entry{Name: "gemini", Provider: g}, Entry{Name: "template", Provider: Template{}}), nil
	case BackendOpenAI:
		o, err := NewOpenAI(opts.OpenAIAPIKey, opts.OpenAIModel,
			WithBaseURL(opts.OpenAIBaseURL),
			WithRequestTimeout(opts.RequestTimeout),
		)
		if err != nil {
			return nil, err
		}
		return NewFallback(Entry{Name: "openai", Provider: o}, Entry{Name: "template", Provider: Template{}}), nil
	default:
		return nil, fmt.Errorf("narrator: unknown backend %q", opts.Backend)
	}
}

// Close releases p if it holds resources.
func Close(p Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BuildPrompt renders the language model prompt for event.
func BuildPrompt(event models.AdventureEvent, state models.PlayerState) (string, error) {
	data := struct {
		Title     string
		Category  models.Category
		Prompt    string
		Tags      []string
		Inventory []string
		Stats     models.Stats
	}{
		Title:     event.Title,
		Category:  event.Category,
		Prompt:    event.Prompt,
		Tags:      state.Tags,
		Inventory: state.Inventory,
		Stats:     state.Stats,
	}

	var buf bytes.Buffer
	if err := describeEventTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("narrator: render prompt: %w", err)
	}
	return buf.String(), nil
}
