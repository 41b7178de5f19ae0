package gateway

import (
	"errors"
	"fmt"
)

// GenericMessage is the only text a client sees for upstream and internal failures
const GenericMessage = "Something went wrong"

// Kind classifies a failed request
type Kind int

const (
	KindEmptyInput Kind = iota + 1
	KindTooLong
	KindRateLimited
	KindUpstream
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "EmptyInput"
	case KindTooLong:
		return "TooLong"
	case KindRateLimited:
		return "RateLimited"
	case KindUpstream:
		return "UpstreamError"
	case KindInternal:
		return "InternalError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by Service.Handle for every rejected or failed request.
// Message is safe to show to the client; Err is for logs only.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the failure was caused by the request itself
func (e *Error) IsClientError() bool {
	return e.Kind == KindEmptyInput || e.Kind == KindTooLong || e.Kind == KindRateLimited
}

// KindOf returns the kind carried by err, or KindInternal for any other error
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the text to send to the client for err
func PublicMessage(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.IsClientError() {
		return gwErr.Message
	}
	return GenericMessage
}
