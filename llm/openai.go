package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/sashabaranov/go-openai"
)

// OpenAIModel implements the LLM interface using OpenAI's API
type OpenAIModel struct {
	client     *openai.Client
	modelName  string
	maxTokens  int
	apiTimeout int // in seconds
	mode       Mode
}

// NewOpenAI creates a new OpenAI client
func NewOpenAI(apiKey string, opts ...Option) (*OpenAIModel, error) {
	if apiKey == "" {
		errMsg := "OpenAI API key cannot be empty"
		logger.Error(errMsg)
		return nil, errors.New(errMsg)
	}

	cfg := newConfig(openai.GPT3Dot5Turbo, opts)
	if cfg.mode != ModeChat && cfg.mode != ModeCompletion {
		return nil, fmt.Errorf("unsupported OpenAI mode: %s", cfg.mode)
	}

	config := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		config.BaseURL = cfg.baseURL
	}
	if cfg.httpClient != nil {
		config.HTTPClient = cfg.httpClient
	}

	model := &OpenAIModel{
		client:     openai.NewClientWithConfig(config),
		modelName:  cfg.modelName,
		maxTokens:  cfg.maxTokens,
		apiTimeout: cfg.apiTimeout,
		mode:       cfg.mode,
	}

	logger.Debugf("OpenAI client initialized with model: %s, mode: %s, max tokens: %d, timeout: %d seconds",
		model.modelName, model.mode, model.maxTokens, model.apiTimeout)

	return model, nil
}

// Prompt sends a request to OpenAI and returns the response
func (o *OpenAIModel) Prompt(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(o.apiTimeout)*time.Second)
	defer cancel()

	logger.Debugf("Sending %s request to OpenAI model %s, max tokens %d", o.mode, o.modelName, o.maxTokens)

	if o.mode == ModeCompletion {
		return o.complete(ctx, req)
	}
	return o.chat(ctx, req)
}

func (o *OpenAIModel) chat(ctx context.Context, req Request) Response {
	chatReq := openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens: o.maxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return upstreamError("failed to create chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return upstreamError("OpenAI response contained no choices", nil)
	}

	return firstCandidate(resp.Choices[0].Message.Content)
}

func (o *OpenAIModel) complete(ctx context.Context, req Request) Response {
	completionReq := openai.CompletionRequest{
		Model:     o.modelName,
		Prompt:    req.Prompt,
		MaxTokens: o.maxTokens,
	}

	resp, err := o.client.CreateCompletion(ctx, completionReq)
	if err != nil {
		return upstreamError("failed to create completion", err)
	}

	if len(resp.Choices) == 0 {
		return upstreamError("OpenAI response contained no choices", nil)
	}

	return firstCandidate(resp.Choices[0].Text)
}
