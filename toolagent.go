// Package toolagent provides a high-level façade for building tool-calling
// agents. Most applications interact with this package by:
//  1. Loading a config.Config (NewClientFromEnv reads API_KEY, BASE_URL and
//     MODEL_ID plus the TOOLAGENT_* settings)
//  2. Creating agents on the client with CreateAgent
//  3. Registering tools (tool.NewFunctionTool, agent.AsTool, tool/remote) and
//     calling Agent.Run
//
// The client picks the model provider from the configuration and hands every
// agent the configured limits and logger.
package toolagent

import (
	"context"
	"fmt"
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/toolagent/agent"
	"github.com/hupe1980/toolagent/config"
	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
	"github.com/hupe1980/toolagent/model"
	"github.com/hupe1980/toolagent/model/anthropic"
	"github.com/hupe1980/toolagent/model/gemini"
	"github.com/hupe1980/toolagent/model/langchain"
	"github.com/hupe1980/toolagent/model/openai"
)

// Options configures the Client.
type Options struct {
	// Model overrides the provider selected by the configuration.
	Model model.Model
	// Logger overrides the logger built from the configuration.
	Logger logging.Logger
}

// Client owns one model and creates agents that share it.
type Client struct {
	cfg    config.Config
	model  model.Model
	logger logging.Logger
}

// NewClient validates cfg and constructs the configured model.
func NewClient(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*Client, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = cfg.NewLogger()
	}

	llm := opts.Model
	if llm == nil {
		var err error
		if llm, err = NewModel(ctx, cfg); err != nil {
			return nil, err
		}
	}

	logger.Debug("toolagent.client.created", "provider", cfg.Provider, "model", llm.Info().Name)

	return &Client{cfg: cfg, model: llm, logger: logger}, nil
}

// NewClientFromEnv loads the configuration (see config.Load) and creates a
// client from it.
func NewClientFromEnv(ctx context.Context, optFns ...func(o *config.LoadOptions)) (*Client, error) {
	cfg, err := config.Load(optFns...)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, *cfg)
}

// Model returns the client's model.
func (c *Client) Model() model.Model { return c.model }

// Config returns the configuration the client was built from.
func (c *Client) Config() config.Config { return c.cfg }

// Logger returns the client's logger.
func (c *Client) Logger() logging.Logger { return c.logger }

// CreateAgent creates an agent bound to the client's model. Iteration and
// parallelism limits and the logger default to the client configuration;
// optFns may override them.
func (c *Client) CreateAgent(name string, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	defaults := func(o *agent.Options) {
		if c.cfg.MaxIterations > 0 {
			o.MaxIterations = c.cfg.MaxIterations
		}
		o.MaxParallelTools = c.cfg.MaxParallelTools
		o.Logger = c.logger
	}
	return agent.New(name, c.model, append([]func(o *agent.Options){defaults}, optFns...)...)
}

// Close releases provider resources held by the model, if any.
func (c *Client) Close() error {
	if closer, ok := c.model.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// NewModel constructs the model selected by cfg.Provider. cfg should be
// validated first.
func NewModel(ctx context.Context, cfg config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewCompatibleModel(cfg.APIKey, cfg.BaseURL, func(o *openai.Options) {
			if cfg.ModelID != "" {
				o.Model = cfg.ModelID
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		}), nil

	case config.ProviderAzure:
		return openai.NewAzureModel(openai.AzureOptions{
			Endpoint:   cfg.BaseURL,
			APIVersion: cfg.APIVersion,
			APIKey:     cfg.APIKey,
		}, func(o *openai.Options) {
			if cfg.ModelID != "" {
				o.Model = cfg.ModelID
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		})

	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.ModelID != "" {
				o.Model = anthropicsdk.Model(cfg.ModelID)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
		}), nil

	case config.ProviderGemini:
		return gemini.NewModel(ctx, cfg.APIKey, func(o *gemini.Options) {
			if cfg.ModelID != "" {
				o.Model = cfg.ModelID
			}
			o.Temperature = float32(cfg.Temperature)
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int32(cfg.MaxTokens)
			}
			o.Logger = cfg.NewLogger().WithComponent("model")
		})

	case config.ProviderLangChain:
		return langchain.NewOpenAICompatible(cfg.APIKey, cfg.BaseURL, cfg.ModelID, func(o *langchain.Options) {
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		})

	case config.ProviderMock:
		name := cfg.ModelID
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, config.ProviderMock), nil
	}

	return nil, &core.ConfigurationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", cfg.Provider)}
}
