// Package gateway runs one request through rate limiting, validation,
// prompt transformation and completion, in that order.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/birmacher/dealing-with-ai/input"
	"github.com/birmacher/dealing-with-ai/limiter"
	"github.com/birmacher/dealing-with-ai/llm"
	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/birmacher/dealing-with-ai/model"
	"github.com/birmacher/dealing-with-ai/prompt"
)

// Stage is the position of a request in the pipeline
type Stage int

const (
	StageReceived Stage = iota
	StageRateChecked
	StageValidated
	StagePrompted
	StageCompleted
	StageResponded
	StageErrored
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageRateChecked:
		return "rate_checked"
	case StageValidated:
		return "validated"
	case StagePrompted:
		return "prompted"
	case StageCompleted:
		return "completed"
	case StageResponded:
		return "responded"
	case StageErrored:
		return "errored"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Limiter admits or rejects a request for a client key
type Limiter interface {
	Admit(key string) limiter.Decision
}

// Validator turns the raw request value into normalized text
type Validator interface {
	Validate(raw interface{}) (string, error)
}

// Transformer builds the final prompt
type Transformer interface {
	Transform(in prompt.Input) string
}

// Result is the outcome of a handled request. RateLimit is filled in once
// the request passed the rate check, even when a later stage fails.
type Result struct {
	Text      string
	Stage     Stage
	RateLimit limiter.Decision
	RateKnown bool
}

// Service wires the pipeline stages together
type Service struct {
	limiter     Limiter
	validator   Validator
	transformer Transformer
	llm         llm.LLM
}

// New creates a service from its collaborators
func New(l Limiter, v Validator, t Transformer, client llm.LLM) *Service {
	return &Service{
		limiter:     l,
		validator:   v,
		transformer: t,
		llm:         client,
	}
}

// Handle runs the pipeline for one payload. The first failing stage stops
// the request and its failure is returned as *Error.
func (s *Service) Handle(ctx context.Context, clientKey string, payload model.RequestPayload) (res Result, err error) {
	log := logger.With("client", clientKey, "option", string(payload.Option))
	res.Stage = StageReceived

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Recovered from panic", "stage", res.Stage.String(), "panic", r)
			err = &Error{
				Kind:    KindInternal,
				Stage:   res.Stage,
				Message: GenericMessage,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
		if err != nil {
			res.Text = ""
			res.Stage = StageErrored
		}
	}()

	decision := s.limiter.Admit(clientKey)
	res.RateLimit = decision
	res.RateKnown = true
	if !decision.Allowed {
		log.Infow("Request rate limited", "limit", decision.Limit, "reset_at", decision.ResetAt)
		return res, &Error{Kind: KindRateLimited, Stage: res.Stage, Message: decision.Message}
	}
	res.Stage = StageRateChecked

	text, verr := s.validator.Validate(payload.Value)
	if verr != nil {
		log.Infow("Request rejected by validation", "reason", verr.Error())
		return res, validationError(res.Stage, verr)
	}
	res.Stage = StageValidated

	finalPrompt := s.transformer.Transform(prompt.Input{
		Text:     text,
		Option:   prompt.Option(payload.Option),
		Language: string(payload.Language),
		Task:     string(payload.Task),
		Number:   payload.Number.String(),
	})
	res.Stage = StagePrompted
	log.Debugw("Prompt built", "prompt", finalPrompt)

	resp := s.llm.Prompt(ctx, llm.Request{Prompt: finalPrompt})
	if resp.Error != nil {
		log.Errorw("Completion failed", "error", resp.Error)
		return res, &Error{Kind: KindUpstream, Stage: res.Stage, Message: GenericMessage, Err: resp.Error}
	}
	res.Stage = StageCompleted

	res.Text = resp.Content
	res.Stage = StageResponded
	log.Debugw("Request completed", "characters", len([]rune(res.Text)))
	return res, nil
}

func validationError(stage Stage, err error) *Error {
	var tooLong *input.TooLongError
	switch {
	case errors.As(err, &tooLong):
		return &Error{Kind: KindTooLong, Stage: stage, Message: tooLong.Error(), Err: err}
	case errors.Is(err, input.ErrEmptyInput):
		return &Error{Kind: KindEmptyInput, Stage: stage, Message: input.ErrEmptyInput.Error(), Err: err}
	default:
		return &Error{Kind: KindInternal, Stage: stage, Message: GenericMessage, Err: err}
	}
}
