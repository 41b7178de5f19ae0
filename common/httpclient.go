package common

import (
	"context"
	"net/http"
	"time"

	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// BackendClientConfig holds the configuration of the HTTP client used to reach the LLM backend
type BackendClientConfig struct {
	// Timeout bounds a single backend call, including reading the body
	Timeout time.Duration
}

// DefaultBackendClientConfig returns the defaults used when nothing is configured
func DefaultBackendClientConfig() BackendClientConfig {
	return BackendClientConfig{
		Timeout: 60 * time.Second,
	}
}

// NewBackendClient creates the HTTP client shared by all backend calls.
// Completions are not idempotent, so the client makes exactly one attempt and
// hands every response, including error statuses, back to the caller.
func NewBackendClient(config BackendClientConfig) *http.Client {
	retryClient := retryablehttp.NewClient()

	retryClient.RetryMax = 0
	retryClient.CheckRetry = neverRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &zapRetryLogger{}
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, _ int) {
		logger.Debugf("Backend request: %s %s", req.Method, req.URL.Redacted())
	}
	retryClient.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		logger.Debugf("Backend response: %s %s -> %d", resp.Request.Method, resp.Request.URL.Redacted(), resp.StatusCode)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultBackendClientConfig().Timeout
	}

	client := retryClient.StandardClient()
	client.Timeout = timeout

	logger.Debugf("Created backend client with timeout: %s", timeout)

	return client
}

func neverRetry(_ context.Context, _ *http.Response, _ error) (bool, error) {
	return false, nil
}

// zapRetryLogger adapts our zap logger to the interface required by retryablehttp
type zapRetryLogger struct{}

func (z *zapRetryLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Errorw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Infow(msg, keysAndValues...)
}

func (z *zapRetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Debugw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Warnw(msg, keysAndValues...)
}
