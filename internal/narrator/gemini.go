package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Porkelson/dnd-project/internal/models"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini generates descriptions with a Google Gemini model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini connects to the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0.8)
	m.SetMaxOutputTokens(256)
	return &Gemini{client: client, model: m}, nil
}

// Generate implements Provider.
func (g *Gemini) Generate(ctx context.Context, event models.AdventureEvent, state models.PlayerState) (string, error) {
	prompt, err := BuildPrompt(event, state)
	if err != nil {
		return "", err
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return responseText(resp)
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no content returned")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			return "", fmt.Errorf("gemini: unexpected response part %T", part)
		}
		b.WriteString(string(text))
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini: empty response")
	}
	return out, nil
}
