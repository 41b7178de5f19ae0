package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/birmacher/dealing-with-ai/logger"
)

// AnthropicModel implements the LLM interface using Anthropic's API
type AnthropicModel struct {
	client     anthropic.Client
	modelName  string
	maxTokens  int
	apiTimeout int // in seconds
}

// NewAnthropic creates a new Anthropic client
func NewAnthropic(apiKey string, opts ...Option) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key cannot be empty")
	}

	cfg := newConfig(string(anthropic.ModelClaude3_5HaikuLatest), opts)
	if cfg.mode != ModeChat {
		return nil, errors.New("Anthropic only supports the chat mode")
	}

	// The gateway never retries a completion
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.httpClient))
	}

	model := &AnthropicModel{
		client:     anthropic.NewClient(clientOpts...),
		modelName:  cfg.modelName,
		maxTokens:  cfg.maxTokens,
		apiTimeout: cfg.apiTimeout,
	}

	logger.Debugf("Anthropic client initialized with model: %s, max tokens: %d, timeout: %d seconds",
		model.modelName, model.maxTokens, model.apiTimeout)

	return model, nil
}

// Prompt sends a request to Anthropic and returns the response
func (a *AnthropicModel) Prompt(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.apiTimeout)*time.Second)
	defer cancel()

	messageParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.modelName),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	logger.Debugf("Sending request to Anthropic model %s, max tokens %d", a.modelName, a.maxTokens)

	message, err := a.client.Messages.New(ctx, messageParams)
	if err != nil {
		return upstreamError("failed to create message", err)
	}

	// Concatenate the text blocks of the returned message
	var content strings.Builder
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(b.Text)
		}
	}

	if content.Len() == 0 {
		return upstreamError("Anthropic response contained no text", nil)
	}

	return firstCandidate(content.String())
}
