package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/birmacher/dealing-with-ai/input"
	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/birmacher/dealing-with-ai/prompt"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	ModeChat       = "chat"
	ModeCompletion = "completion"
)

// defaultModels is used when LLM_MODEL is not set
var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-3.5-turbo",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-1.5-flash",
}

// DefaultPromptCharacters caps the final prompt when validation counts words
const DefaultPromptCharacters = 4000

type RateLimit struct {
	MaxRequests   int  `yaml:"max_requests"`
	WindowMinutes int  `yaml:"window_minutes"`
	MaxKeys       int  `yaml:"max_keys"`
	TrustProxy    bool `yaml:"trust_proxy"`
}

type Input struct {
	MaxCharacters       int    `yaml:"max_characters"`
	MaxWords            int    `yaml:"max_words"`
	MaxPromptCharacters int    `yaml:"max_prompt_characters"`
	NewlinePolicy       string `yaml:"newline_policy"`
}

type LLM struct {
	Provider       string `yaml:"provider"`
	Mode           string `yaml:"mode"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Settings struct {
	Port      string    `yaml:"port"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Input     Input     `yaml:"input"`
	LLM       LLM       `yaml:"llm"`
}

func WithDefaultSettings() Settings {
	return Settings{
		Port: "5000",
		RateLimit: RateLimit{
			MaxKeys: 100_000,
		},
		Input: Input{
			NewlinePolicy: string(input.NewlineStrip),
		},
		LLM: LLM{
			Provider:       ProviderOpenAI,
			Mode:           ModeChat,
			MaxTokens:      1024,
			TimeoutSeconds: 60,
		},
	}
}

// Load builds the settings: defaults, then the YAML file, then the .env
// file, then the process environment. The result is validated.
func Load(configPath, envFile string) (Settings, error) {
	settings, err := WithYamlFile(configPath)
	if err != nil {
		return Settings{}, err
	}

	if err := LoadEnvFile(envFile); err != nil {
		return Settings{}, err
	}

	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// WithYamlFile reads settings from path on top of the defaults. With an
// empty path gateway.yml or gateway.yaml in the working directory is used
// when present.
func WithYamlFile(path string) (Settings, error) {
	settings := WithDefaultSettings()

	if path == "" {
		for _, name := range []string{"gateway.yml", "gateway.yaml"} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}

	if path == "" {
		logger.Debug("No gateway.yml found in the current directory. Using default settings.")
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	logger.Infof("Using settings from YAML file: %s", path)
	return settings, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// ones already set. With an empty path .env is loaded when present.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	logger.Debugf("Loaded environment from %s", path)
	return nil
}

// ApplyEnv overrides settings with the environment variables found by lookup
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	var errs []error
	setInt := func(key string, dst *int) {
		v, ok := get(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
			return
		}
		*dst = n
	}
	setString := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	setString("PORT", &s.Port)

	setInt("MAX_REQUESTS", &s.RateLimit.MaxRequests)
	setInt("MAX_REQUESTS_PER_MINUTE", &s.RateLimit.WindowMinutes)
	setInt("RATE_LIMIT_MAX_KEYS", &s.RateLimit.MaxKeys)
	if v, ok := get("TRUST_PROXY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRUST_PROXY must be a boolean, got %q", v))
		} else {
			s.RateLimit.TrustProxy = b
		}
	}

	setInt("MAX_CHARACTERS", &s.Input.MaxCharacters)
	setInt("MAX_WORDS", &s.Input.MaxWords)
	setInt("MAX_PROMPT_CHARACTERS", &s.Input.MaxPromptCharacters)
	setString("NEWLINE_POLICY", &s.Input.NewlinePolicy)

	setString("LLM_PROVIDER", &s.LLM.Provider)
	setString("LLM_MODE", &s.LLM.Mode)
	setString("OPENAI_API_KEY", &s.LLM.APIKey)
	setString("LLM_API_KEY", &s.LLM.APIKey)
	setString("LLM_MODEL", &s.LLM.Model)
	setString("LLM_BASE_URL", &s.LLM.BaseURL)
	setInt("LLM_MAX_TOKENS", &s.LLM.MaxTokens)
	setInt("LLM_TIMEOUT", &s.LLM.TimeoutSeconds)

	return errors.Join(errs...)
}

// Validate checks every setting the gateway needs at startup
func (s Settings) Validate() error {
	var errs []error

	if s.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	if s.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("MAX_REQUESTS must be a positive integer"))
	}
	if s.RateLimit.WindowMinutes <= 0 {
		errs = append(errs, errors.New("MAX_REQUESTS_PER_MINUTE must be a positive integer"))
	}
	if s.RateLimit.MaxKeys < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX_KEYS cannot be negative"))
	}

	switch {
	case s.Input.MaxCharacters > 0 && s.Input.MaxWords > 0:
		errs = append(errs, errors.New("MAX_CHARACTERS and MAX_WORDS are mutually exclusive"))
	case s.Input.MaxCharacters <= 0 && s.Input.MaxWords <= 0:
		errs = append(errs, errors.New("one of MAX_CHARACTERS or MAX_WORDS must be a positive integer"))
	}
	if s.Input.MaxPromptCharacters < 0 {
		errs = append(errs, errors.New("MAX_PROMPT_CHARACTERS cannot be negative"))
	}
	if p := input.NewlinePolicy(s.Input.NewlinePolicy); p != input.NewlineStrip && p != input.NewlineCollapse {
		errs = append(errs, fmt.Errorf("NEWLINE_POLICY must be %q or %q, got %q", input.NewlineStrip, input.NewlineCollapse, s.Input.NewlinePolicy))
	}

	switch s.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER: %q", s.LLM.Provider))
	}
	switch s.LLM.Mode {
	case ModeChat:
	case ModeCompletion:
		if s.LLM.Provider != ProviderOpenAI {
			errs = append(errs, fmt.Errorf("LLM_MODE %q is only supported by the %s provider", ModeCompletion, ProviderOpenAI))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_MODE: %q", s.LLM.Mode))
	}
	if s.LLM.APIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if s.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("LLM_MAX_TOKENS must be a positive integer"))
	}
	if s.LLM.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be a positive integer"))
	}

	return errors.Join(errs...)
}

// InputLimits returns the validator limits described by the settings
func (s Settings) InputLimits() input.Limits {
	limits := input.Limits{
		Unit:     input.Characters,
		Max:      s.Input.MaxCharacters,
		Newlines: input.NewlinePolicy(s.Input.NewlinePolicy),
	}
	if s.Input.MaxWords > 0 {
		limits.Unit = input.Words
		limits.Max = s.Input.MaxWords
	}
	return limits
}

// PromptCharacters returns the final prompt limit. Without an explicit
// limit, text that passed validation keeps room for every option's prefix or suffix.
func (s Settings) PromptCharacters() int {
	switch {
	case s.Input.MaxPromptCharacters > 0:
		return s.Input.MaxPromptCharacters
	case s.Input.MaxCharacters > 0:
		return s.Input.MaxCharacters + prompt.MaxAffixCharacters()
	default:
		return DefaultPromptCharacters
	}
}

// Window returns the rate limit window
func (s Settings) Window() time.Duration {
	return time.Duration(s.RateLimit.WindowMinutes) * time.Minute
}

// Timeout returns the per-call backend timeout
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.LLM.TimeoutSeconds) * time.Second
}

// ModelName returns the configured model, or the provider's default
func (s Settings) ModelName() string {
	if s.LLM.Model != "" {
		return s.LLM.Model
	}
	return defaultModels[s.LLM.Provider]
}
