package narrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/Porkelson/dnd-project/internal/models"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	openAISystemPrompt = "You narrate scenes for a tabletop role-playing game. Reply with prose only."
	openAIMaxTokens    = 256
)

// OpenAI generates descriptions with an OpenAI chat model.
type OpenAI struct {
	client oai.Client
	model  string
}

type openAIConfig struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
}

// OpenAIOption configures [NewOpenAI].
type OpenAIOption func(*openAIConfig)

// WithBaseURL overrides the API base URL. Empty keeps the default.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

// WithRequestTimeout sets a per-request HTTP timeout. Zero keeps the SDK default.
func WithRequestTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets how often the SDK retries a failed request.
func WithMaxRetries(n int) OpenAIOption {
	return func(c *openAIConfig) {
		c.maxRetries = n
	}
}

// NewOpenAI constructs an OpenAI provider.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	cfg := &openAIConfig{maxRetries: 1}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &OpenAI{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Generate implements Provider.
func (p *OpenAI) Generate(ctx context.Context, event models.AdventureEvent, state models.PlayerState) (string, error) {
	params, err := p.buildParams(event, state)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices in response")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("openai: empty response")
	}
	return out, nil
}

func (p *OpenAI) buildParams(event models.AdventureEvent, state models.PlayerState) (oai.ChatCompletionNewParams, error) {
	prompt, err := BuildPrompt(event, state)
	if err != nil {
		return oai.ChatCompletionNewParams{}, err
	}
	return oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(openAISystemPrompt),
			oai.UserMessage(prompt),
		},
		Temperature:         param.NewOpt(0.8),
		MaxCompletionTokens: param.NewOpt(int64(openAIMaxTokens)),
	}, nil
}
