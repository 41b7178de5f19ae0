package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiModel implements the LLM interface using Google's Gemini API
type GeminiModel struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	modelName  string
	maxTokens  int
	apiTimeout int // in seconds
}

// NewGemini creates a new Gemini client. The client holds a connection and
// must be closed with Close.
func NewGemini(apiKey string, opts ...Option) (*GeminiModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("Gemini API key cannot be empty")
	}

	cfg := newConfig("gemini-1.5-flash", opts)
	if cfg.mode != ModeChat {
		return nil, errors.New("Gemini only supports the chat mode")
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if cfg.httpClient != nil {
		// A custom client bypasses WithAPIKey for REST calls
		clientOpts = append(clientOpts, option.WithHTTPClient(withGeminiKey(cfg.httpClient, apiKey)))
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.baseURL))
	}

	client, err := genai.NewClient(context.Background(), clientOpts...)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(strings.TrimSpace(cfg.modelName))
	model.SetMaxOutputTokens(int32(cfg.maxTokens))

	logger.Debugf("Gemini client initialized with model: %s, max tokens: %d, timeout: %d seconds",
		cfg.modelName, cfg.maxTokens, cfg.apiTimeout)

	return &GeminiModel{
		client:     client,
		model:      model,
		modelName:  cfg.modelName,
		maxTokens:  cfg.maxTokens,
		apiTimeout: cfg.apiTimeout,
	}, nil
}

// Prompt sends a request to Gemini and returns the response
func (g *GeminiModel) Prompt(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.apiTimeout)*time.Second)
	defer cancel()

	logger.Debugf("Sending request to Gemini model %s, max tokens %d", g.modelName, g.maxTokens)

	resp, err := g.model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return upstreamError("failed to generate content", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return upstreamError("Gemini response contained no candidates", nil)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	if text.Len() == 0 {
		return upstreamError("Gemini response contained no text", nil)
	}

	return firstCandidate(text.String())
}

// Close releases the underlying connection
func (g *GeminiModel) Close() error {
	return g.client.Close()
}

type geminiKeyTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *geminiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("x-goog-api-key", t.apiKey)
	return t.base.RoundTrip(req)
}

func withGeminiKey(client *http.Client, apiKey string) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	keyed := *client
	keyed.Transport = &geminiKeyTransport{apiKey: apiKey, base: base}
	return &keyed
}
