// Package config loads the settings needed to build a model and agents:
// provider, endpoint, credentials and dispatch limits. Values are layered
// defaults, then an optional YAML file, then an optional dotenv file, then
// the process environment; later layers win. A Config is validated once at
// startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderLangChain = "langchain"
	ProviderMock      = "mock"
)

// Environment variable names.
const (
	EnvAPIKey           = "API_KEY"
	EnvBaseURL          = "BASE_URL"
	EnvModelID          = "MODEL_ID"
	EnvConfigFile       = "TOOLAGENT_CONFIG"
	EnvProvider         = "TOOLAGENT_PROVIDER"
	EnvAPIVersion       = "TOOLAGENT_API_VERSION"
	EnvTemperature      = "TOOLAGENT_TEMPERATURE"
	EnvMaxTokens        = "TOOLAGENT_MAX_TOKENS"
	EnvMaxIterations    = "TOOLAGENT_MAX_ITERATIONS"
	EnvMaxParallelTools = "TOOLAGENT_MAX_PARALLEL_TOOLS"
	EnvLogLevel         = "TOOLAGENT_LOG_LEVEL"
	EnvLogFormat        = "TOOLAGENT_LOG_FORMAT"
)

// Config is the explicit runtime configuration.
type Config struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	ModelID    string `yaml:"model_id"`
	APIVersion string `yaml:"api_version"`

	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	MaxIterations    int `yaml:"max_iterations"`
	MaxParallelTools int `yaml:"max_parallel_tools"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Provider:      ProviderOpenAI,
		Temperature:   0.7,
		MaxTokens:     4096,
		MaxIterations: 10,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// LoadOptions control where Load looks for values.
type LoadOptions struct {
	// File is a YAML file. Empty means $TOOLAGENT_CONFIG, if set.
	File string
	// EnvFile is a dotenv file. It is read without modifying the process
	// environment. A missing default ".env" is ignored; a missing explicit
	// file is an error.
	EnvFile string
	// LookupEnv reads the process environment (os.LookupEnv by default).
	LookupEnv func(key string) (string, bool)
}

// Load builds a Config from defaults, the YAML file, the dotenv file and the
// environment. It does not validate; call Validate.
func Load(optFns ...func(o *LoadOptions)) (*Config, error) {
	opts := LoadOptions{LookupEnv: os.LookupEnv}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	cfg := Default()

	file := opts.File
	if file == "" {
		file, _ = opts.LookupEnv(EnvConfigFile)
	}
	if file != "" {
		if err := cfg.loadYAML(file); err != nil {
			return nil, err
		}
	}

	dotenv, err := readDotenv(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := opts.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &core.ConfigurationError{Field: "file", Message: err.Error()}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &core.ConfigurationError{Field: "file", Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return nil
}

func readDotenv(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, &core.ConfigurationError{Field: "env_file", Message: err.Error()}
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvProvider, &c.Provider)
	str(EnvAPIKey, &c.APIKey)
	str(EnvBaseURL, &c.BaseURL)
	str(EnvModelID, &c.ModelID)
	str(EnvAPIVersion, &c.APIVersion)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)

	ints := []struct {
		key string
		dst *int
	}{
		{EnvMaxTokens, &c.MaxTokens},
		{EnvMaxIterations, &c.MaxIterations},
		{EnvMaxParallelTools, &c.MaxParallelTools},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &core.ConfigurationError{Field: i.key, Message: fmt.Sprintf("not an integer: %q", v)}
		}
		*i.dst = n
	}

	if v, ok := lookup(EnvTemperature); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return &core.ConfigurationError{Field: EnvTemperature, Message: fmt.Sprintf("not a number: %q", v)}
		}
		c.Temperature = f
	}

	return nil
}

// Validate checks the configuration and returns the first problem as a
// *core.ConfigurationError.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))

	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		if c.APIKey == "" {
			return &core.ConfigurationError{Field: "api_key", Message: fmt.Sprintf("required for provider %q", c.Provider)}
		}
	case ProviderAzure:
		// The key is optional; without it the Azure default credential chain is used.
		if c.BaseURL == "" {
			return &core.ConfigurationError{Field: "base_url", Message: "azure endpoint is required"}
		}
	case ProviderLangChain:
		if c.BaseURL == "" {
			return &core.ConfigurationError{Field: "base_url", Message: "required for provider \"langchain\""}
		}
	case ProviderMock:
	default:
		return &core.ConfigurationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", c.Provider)}
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return &core.ConfigurationError{Field: "temperature", Message: "must be between 0 and 2"}
	}
	if c.MaxTokens < 0 {
		return &core.ConfigurationError{Field: "max_tokens", Message: "must not be negative"}
	}
	if c.MaxIterations < 1 {
		return &core.ConfigurationError{Field: "max_iterations", Message: "must be at least 1"}
	}
	if c.MaxParallelTools < 0 {
		return &core.ConfigurationError{Field: "max_parallel_tools", Message: "must not be negative"}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &core.ConfigurationError{Field: "log_level", Message: err.Error()}
	}
	if f := strings.ToLower(c.LogFormat); f != "" && f != "text" && f != "json" {
		return &core.ConfigurationError{Field: "log_format", Message: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}

	return nil
}

// NewLogger builds the structured logger described by the configuration.
func (c *Config) NewLogger() *logging.StructuredLogger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LogLevelInfo
	}
	return logging.NewSlogLogger(level, strings.ToLower(c.LogFormat), false)
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}
