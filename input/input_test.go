package input

import (
	"errors"
	"strings"
	"testing"
)

func newValidator(t *testing.T, limits Limits) *Validator {
	t.Helper()
	v, err := NewValidator(limits)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	return v
}

func TestValidate_EmptyInput(t *testing.T) {
	v := newValidator(t, Limits{Unit: Characters, Max: 10, Newlines: NewlineStrip})

	for _, raw := range []interface{}{nil, "", "   ", "\n\r\n\t", 42, true, map[string]interface{}{}} {
		_, err := v.Validate(raw)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Expected ErrEmptyInput for %#v, got %v", raw, err)
		}
	}

	if ErrEmptyInput.Error() != "String is empty" {
		t.Errorf("Unexpected empty input message: %s", ErrEmptyInput)
	}
}

func TestValidate_TooLongCharacters(t *testing.T) {
	v := newValidator(t, Limits{Unit: Characters, Max: 5, Newlines: NewlineStrip})

	if _, err := v.Validate("hello"); err != nil {
		t.Errorf("Expected exactly-at-limit input to pass, got %v", err)
	}

	_, err := v.Validate("hello!")
	var tooLong *TooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("Expected TooLongError, got %v", err)
	}
	if err.Error() != "String is too long (max 5 characters)" {
		t.Errorf("Unexpected message: %s", err)
	}
}

func TestValidate_CountsCodePoints(t *testing.T) {
	v := newValidator(t, Limits{Unit: Characters, Max: 3, Newlines: NewlineStrip})

	if _, err := v.Validate("äöü"); err != nil {
		t.Errorf("Expected three code points to fit a limit of 3, got %v", err)
	}
}

func TestValidate_TooLongWords(t *testing.T) {
	v := newValidator(t, Limits{Unit: Words, Max: 3, Newlines: NewlineStrip})

	if _, err := v.Validate("one two   three"); err != nil {
		t.Errorf("Expected three words to pass, got %v", err)
	}

	_, err := v.Validate("one two three four")
	if err == nil || err.Error() != "String is too long (max 3 words)" {
		t.Errorf("Expected words limit error, got %v", err)
	}
}

func TestValidate_LengthMeasuredAfterNormalization(t *testing.T) {
	v := newValidator(t, Limits{Unit: Characters, Max: 4, Newlines: NewlineStrip})

	text, err := v.Validate("  ab\r\ncd \n")
	if err != nil {
		t.Fatalf("Expected normalized text to fit, got %v", err)
	}
	if text != "abcd" {
		t.Errorf("Expected 'abcd', got %q", text)
	}
}

func TestNormalize_Strip(t *testing.T) {
	cases := map[string]string{
		"  hello world  ":          "hello world",
		"line one\nline two":       "line oneline two",
		"a\r\nb\rc\nd":             "abcd",
		"\n\n  padded  \n\n":       "padded",
		"keep  inner   spaces\tok": "keep  inner   spaces\tok",
	}
	for in, want := range cases {
		if got := Normalize(in, NewlineStrip); got != want {
			t.Errorf("Normalize(%q, strip) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Collapse(t *testing.T) {
	cases := map[string]string{
		"a\nb":           "a\nb",
		"a\n\n\nb":       "a\nb",
		"a\r\n\r\nb":     "a\nb",
		"a\n  \n\t\nb":   "a\nb",
		"\n\na\n\nb\n\n": "a\nb",
	}
	for in, want := range cases {
		if got := Normalize(in, NewlineCollapse); got != want {
			t.Errorf("Normalize(%q, collapse) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "plain", "  a \n b  ", "a\n\n\n b\r\n\r\n c", "\t\n x \n\t", "multi\n \n \nline\n end ",
		strings.Repeat("ab\n", 20),
	}
	for _, policy := range []NewlinePolicy{NewlineStrip, NewlineCollapse} {
		for _, in := range inputs {
			once := Normalize(in, policy)
			twice := Normalize(once, policy)
			if once != twice {
				t.Errorf("Normalize not idempotent for %q with %s: %q vs %q", in, policy, once, twice)
			}
			if strings.TrimSpace(once) != once {
				t.Errorf("Normalize left surrounding whitespace for %q with %s: %q", in, policy, once)
			}
		}
	}
}

func TestLimitsValidate(t *testing.T) {
	bad := []Limits{
		{Unit: "bytes", Max: 10, Newlines: NewlineStrip},
		{Unit: Characters, Max: 0, Newlines: NewlineStrip},
		{Unit: Words, Max: -1, Newlines: NewlineStrip},
		{Unit: Characters, Max: 10, Newlines: "squash"},
	}
	for _, l := range bad {
		if _, err := NewValidator(l); err == nil {
			t.Errorf("Expected error for limits %+v", l)
		}
	}
}
