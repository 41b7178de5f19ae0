package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Mode selects the request shape sent to backends that support more than one
type Mode string

const (
	// ModeChat sends the prompt as a single user chat message
	ModeChat Mode = "chat"
	// ModeCompletion sends the prompt as a classic completion request
	ModeCompletion Mode = "completion"
)

// ErrUpstream wraps every failure reported by a backend
var ErrUpstream = errors.New("upstream error")

// OptionType defines the type of option
type OptionType string

// Available option types
const (
	ModelNameOption  OptionType = "model"
	MaxTokensOption  OptionType = "max_tokens"
	APITimeoutOption OptionType = "api_timeout"
	ModeOption       OptionType = "mode"
	BaseURLOption    OptionType = "base_url"
	HTTPClientOption OptionType = "http_client"
)

// Option represents a generic configuration option for any LLM provider
type Option struct {
	Type  OptionType
	Value any
}

// WithModel creates an option to set the model name
func WithModel(model string) Option {
	return Option{Type: ModelNameOption, Value: model}
}

// WithMaxTokens creates an option to set the max tokens
func WithMaxTokens(maxTokens int) Option {
	return Option{Type: MaxTokensOption, Value: maxTokens}
}

// WithAPITimeout creates an option to set the API timeout in seconds
func WithAPITimeout(timeout int) Option {
	return Option{Type: APITimeoutOption, Value: timeout}
}

// WithMode creates an option to pick chat or completion requests
func WithMode(mode Mode) Option {
	return Option{Type: ModeOption, Value: mode}
}

// WithBaseURL creates an option to point the client at another endpoint
func WithBaseURL(baseURL string) Option {
	return Option{Type: BaseURLOption, Value: baseURL}
}

// WithHTTPClient creates an option to set the HTTP client used for backend calls
func WithHTTPClient(client *http.Client) Option {
	return Option{Type: HTTPClientOption, Value: client}
}

// Request represents the data sent to the LLM
type Request struct {
	Prompt string
}

// Response represents the response from the LLM
type Response struct {
	Content string
	Error   error
}

// LLM defines the interface for language model prompting
type LLM interface {
	// Prompt sends a request to the language model and returns the first
	// candidate's text, trimmed
	Prompt(ctx context.Context, req Request) Response
}

// config collects the options shared by every provider
type config struct {
	modelName  string
	maxTokens  int
	apiTimeout int // in seconds
	mode       Mode
	baseURL    string
	httpClient *http.Client
}

func newConfig(defaultModel string, opts []Option) config {
	cfg := config{
		modelName:  defaultModel,
		maxTokens:  1024,
		apiTimeout: 60,
		mode:       ModeChat,
	}

	for _, opt := range opts {
		switch opt.Type {
		case ModelNameOption:
			if modelName, ok := opt.Value.(string); ok && modelName != "" {
				cfg.modelName = modelName
			}
		case MaxTokensOption:
			if maxTokens, ok := opt.Value.(int); ok {
				cfg.maxTokens = maxTokens
			}
		case APITimeoutOption:
			if timeout, ok := opt.Value.(int); ok {
				cfg.apiTimeout = timeout
			}
		case ModeOption:
			if mode, ok := opt.Value.(Mode); ok {
				cfg.mode = mode
			}
		case BaseURLOption:
			if baseURL, ok := opt.Value.(string); ok {
				cfg.baseURL = baseURL
			}
		case HTTPClientOption:
			if client, ok := opt.Value.(*http.Client); ok {
				cfg.httpClient = client
			}
		}
	}

	return cfg
}

// NewLLM creates the client for providerName
func NewLLM(providerName, apiKey string, opts ...Option) (LLM, error) {
	var llmClient LLM
	var err error

	switch providerName {
	case ProviderOpenAI:
		llmClient, err = NewOpenAI(apiKey, opts...)
	case ProviderAnthropic:
		llmClient, err = NewAnthropic(apiKey, opts...)
	case ProviderGemini:
		llmClient, err = NewGemini(apiKey, opts...)
	default:
		err = fmt.Errorf("unsupported provider: %s", providerName)
	}
	if err != nil {
		return nil, err
	}

	return llmClient, nil
}

func upstreamError(msg string, err error) Response {
	if err == nil {
		return Response{Error: fmt.Errorf("%w: %s", ErrUpstream, msg)}
	}
	return Response{Error: fmt.Errorf("%w: %s: %w", ErrUpstream, msg, err)}
}

func firstCandidate(text string) Response {
	return Response{Content: strings.TrimSpace(text)}
}
