package prompt

import (
	"fmt"
	"unicode/utf8"
)

// Transformer builds the final prompt sent to the completion backend
type Transformer struct {
	maxChars int
}

// NewTransformer creates a transformer whose prompts never exceed maxChars code points
func NewTransformer(maxChars int) (*Transformer, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max prompt characters must be positive, got %d", maxChars)
	}
	return &Transformer{maxChars: maxChars}, nil
}

// MaxCharacters returns the prompt length limit
func (t *Transformer) MaxCharacters() int {
	return t.maxChars
}

// Transform applies the rule selected by in.Option. Unknown or empty
// options pass the text through unchanged. A prompt that is still over the
// limit after the option's own fallback is cut at the limit.
func (t *Transformer) Transform(in Input) string {
	out := in.Text
	if build, ok := builders[in.Option]; ok {
		out = build(in, t.maxChars)
	}
	return truncate(out, t.maxChars)
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, maxChars int) string {
	if length(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars])
}
