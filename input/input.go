// Package input normalizes and validates the raw text a client sends to the gateway.
package input

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Unit is the measure used for the length limit
type Unit string

const (
	Characters Unit = "characters"
	Words      Unit = "words"
)

// NewlinePolicy decides how line breaks inside the text are normalized
type NewlinePolicy string

const (
	// NewlineStrip removes every \r\n, \n and \r
	NewlineStrip NewlinePolicy = "strip"
	// NewlineCollapse turns every run of two or more line breaks into one \n
	NewlineCollapse NewlinePolicy = "collapse"
)

// ErrEmptyInput is returned when the value is missing, not a string or blank
var ErrEmptyInput = errors.New("String is empty")

// TooLongError is returned when the normalized text exceeds the limit
type TooLongError struct {
	Max  int
	Unit Unit
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("String is too long (max %d %s)", e.Max, e.Unit)
}

// Limits configures a Validator
type Limits struct {
	Unit     Unit
	Max      int
	Newlines NewlinePolicy
}

// Validate reports whether the limits are usable
func (l Limits) Validate() error {
	if l.Unit != Characters && l.Unit != Words {
		return fmt.Errorf("unknown length unit: %q", l.Unit)
	}
	if l.Max <= 0 {
		return fmt.Errorf("max %s must be positive, got %d", l.Unit, l.Max)
	}
	if l.Newlines != NewlineStrip && l.Newlines != NewlineCollapse {
		return fmt.Errorf("unknown newline policy: %q", l.Newlines)
	}
	return nil
}

// Validator turns a raw request value into normalized text
type Validator struct {
	limits Limits
}

// NewValidator creates a validator for the given limits
func NewValidator(limits Limits) (*Validator, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Validator{limits: limits}, nil
}

// Limits returns the configured limits
func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate normalizes raw and checks it against the limits.
// It returns ErrEmptyInput or a *TooLongError on failure.
func (v *Validator) Validate(raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", ErrEmptyInput
	}

	text := Normalize(s, v.limits.Newlines)
	if text == "" {
		return "", ErrEmptyInput
	}

	if Measure(text, v.limits.Unit) > v.limits.Max {
		return "", &TooLongError{Max: v.limits.Max, Unit: v.limits.Unit}
	}

	return text, nil
}

var (
	lineBreaks   = regexp.MustCompile(`\r\n|\n|\r`)
	lineBreakRun = regexp.MustCompile(`(?:\r\n|\n|\r)[ \t]*(?:(?:\r\n|\n|\r)[ \t]*)+`)
)

// Normalize trims surrounding whitespace and applies the newline policy.
// Normalize(Normalize(s, p), p) == Normalize(s, p) for every s.
func Normalize(s string, policy NewlinePolicy) string {
	s = strings.TrimSpace(s)
	switch policy {
	case NewlineCollapse:
		s = lineBreakRun.ReplaceAllString(s, "\n")
	default:
		s = lineBreaks.ReplaceAllString(s, "")
	}
	// Removing breaks can expose whitespace at the edges again
	return strings.TrimSpace(s)
}

// Measure returns the size of text in the given unit
func Measure(text string, unit Unit) int {
	if unit == Words {
		return len(strings.Fields(text))
	}
	return utf8.RuneCountInString(text)
}
