package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/birmacher/dealing-with-ai/input"
	"github.com/birmacher/dealing-with-ai/limiter"
	"github.com/birmacher/dealing-with-ai/llm"
	"github.com/birmacher/dealing-with-ai/model"
	"github.com/birmacher/dealing-with-ai/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	AdmitFunc func(key string) limiter.Decision
}

func (f *fakeLimiter) Admit(key string) limiter.Decision {
	return f.AdmitFunc(key)
}

type fakeLLM struct {
	PromptFunc func(ctx context.Context, req llm.Request) llm.Response
	calls      []string
}

func (f *fakeLLM) Prompt(ctx context.Context, req llm.Request) llm.Response {
	f.calls = append(f.calls, req.Prompt)
	return f.PromptFunc(ctx, req)
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{AdmitFunc: func(string) limiter.Decision {
		return limiter.Decision{Allowed: true, Limit: 10, Remaining: 9}
	}}
}

func echoLLM() *fakeLLM {
	return &fakeLLM{PromptFunc: func(_ context.Context, req llm.Request) llm.Response {
		return llm.Response{Content: "echo: " + req.Prompt}
	}}
}

func newService(t *testing.T, l Limiter, client llm.LLM) *Service {
	t.Helper()
	validator, err := input.NewValidator(input.Limits{Unit: input.Characters, Max: 20, Newlines: input.NewlineStrip})
	require.NoError(t, err)
	transformer, err := prompt.NewTransformer(100)
	require.NoError(t, err)
	return New(l, validator, transformer, client)
}

func TestHandle_Success(t *testing.T) {
	client := echoLLM()
	svc := newService(t, allowAll(), client)

	res, err := svc.Handle(context.Background(), "1.2.3.4", model.RequestPayload{Value: "  2+2 \n", Option: "math"})
	require.NoError(t, err)
	assert.Equal(t, "echo: Solve 2+2", res.Text)
	assert.Equal(t, StageResponded, res.Stage)
	assert.True(t, res.RateKnown)
	assert.Equal(t, 9, res.RateLimit.Remaining)
	assert.Equal(t, []string{"Solve 2+2"}, client.calls)
}

func TestHandle_ProgrammingUsesAuxiliaryFields(t *testing.T) {
	client := echoLLM()
	svc := newService(t, allowAll(), client)

	_, err := svc.Handle(context.Background(), "k", model.RequestPayload{
		Value:    "reverse a list",
		Option:   "programming",
		Language: "Python",
		Task:     "Solve",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PythonSolvereverse a list"}, client.calls)
}

func TestHandle_RateLimitedStopsBeforeValidation(t *testing.T) {
	client := echoLLM()
	l := &fakeLimiter{AdmitFunc: func(string) limiter.Decision {
		return limiter.Decision{Allowed: false, Limit: 2, Message: "Too many requests"}
	}}
	svc := newService(t, l, client)

	// An empty value would be a validation error if validation ran
	res, err := svc.Handle(context.Background(), "k", model.RequestPayload{})
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, KindRateLimited, gwErr.Kind)
	assert.Equal(t, StageReceived, gwErr.Stage)
	assert.Equal(t, "Too many requests", PublicMessage(err))
	assert.Equal(t, StageErrored, res.Stage)
	assert.True(t, res.RateKnown)
	assert.Empty(t, client.calls)
}

func TestHandle_ValidationFailuresNeverReachBackend(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		kind    Kind
		message string
	}{
		{"absent", nil, KindEmptyInput, "String is empty"},
		{"blank", "   \n\t", KindEmptyInput, "String is empty"},
		{"not a string", 42.0, KindEmptyInput, "String is empty"},
		{"too long", "abcdefghijklmnopqrstuvwxyz", KindTooLong, "String is too long (max 20 characters)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := echoLLM()
			svc := newService(t, allowAll(), client)

			_, err := svc.Handle(context.Background(), "k", model.RequestPayload{Value: tt.value})
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.message, PublicMessage(err))
			assert.Empty(t, client.calls)
		})
	}
}

func TestHandle_UpstreamErrorIsGeneric(t *testing.T) {
	secret := errors.New("401 invalid api key sk-abc")
	client := &fakeLLM{PromptFunc: func(context.Context, llm.Request) llm.Response {
		return llm.Response{Error: errors.Join(llm.ErrUpstream, secret)}
	}}
	svc := newService(t, allowAll(), client)

	res, err := svc.Handle(context.Background(), "k", model.RequestPayload{Value: "hello"})
	require.Error(t, err)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, GenericMessage, PublicMessage(err))
	assert.ErrorIs(t, err, secret)
	assert.Empty(t, res.Text)
	assert.Len(t, client.calls, 1, "no retries")
}

func TestHandle_PanicBecomesInternalError(t *testing.T) {
	client := &fakeLLM{PromptFunc: func(context.Context, llm.Request) llm.Response {
		panic("backend exploded")
	}}
	svc := newService(t, allowAll(), client)

	res, err := svc.Handle(context.Background(), "k", model.RequestPayload{Value: "hello"})
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, KindInternal, gwErr.Kind)
	assert.Equal(t, StagePrompted, gwErr.Stage)
	assert.Equal(t, GenericMessage, PublicMessage(err))
	assert.Equal(t, StageErrored, res.Stage)
}

func TestHandle_PassesContextToBackend(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")

	var seen interface{}
	client := &fakeLLM{PromptFunc: func(ctx context.Context, _ llm.Request) llm.Response {
		seen = ctx.Value(ctxKey{})
		return llm.Response{Content: "ok"}
	}}
	svc := newService(t, allowAll(), client)

	_, err := svc.Handle(ctx, "k", model.RequestPayload{Value: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "request-1", seen)
}

func TestHandle_WithRealLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l, err := limiter.New(limiter.Config{
		Window:      time.Minute,
		MaxRequests: 2,
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)
	svc := newService(t, l, echoLLM())

	payload := model.RequestPayload{Value: "hello"}
	for i := 0; i < 2; i++ {
		_, err := svc.Handle(context.Background(), "k", payload)
		require.NoError(t, err)
	}

	_, err = svc.Handle(context.Background(), "k", payload)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t,
		"Too many requests, you can only make 2 requests per 1 minutes. Please try again later.",
		PublicMessage(err))

	now = now.Add(time.Minute)
	_, err = svc.Handle(context.Background(), "k", payload)
	assert.NoError(t, err)
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, GenericMessage, PublicMessage(errors.New("boom")))
	assert.Equal(t, "TooLong", KindTooLong.String())
	assert.Equal(t, "prompted", StagePrompted.String())
}
