package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const DefaultTemperature = 0.7

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("no choices in completion response")

// CompletionError wraps any failure of the remote completion call.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion error: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // "openai" or "ollama"
	Model       string
	Temperature *float64 // nil uses DefaultTemperature
	MaxTokens   int
	APIKey      string
	BaseURL     string        // provider URL, empty for the provider default
	Timeout     time.Duration // per completion, zero disables
}

// ChatEngine sends a system prompt and a question to a chat-completion model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := applyDefaults(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithModel(config.Model),
			openai.WithToken(config.APIKey),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	config, err := applyDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func applyDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.Temperature == nil {
		temperature := DefaultTemperature
		config.Temperature = &temperature
	}
	if *config.Temperature < 0 || *config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	}
	if config.Provider == "ollama" && config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	return config, nil
}

// Config returns the effective configuration.
func (ce *ChatEngine) Config() ChatConfig {
	return ce.config
}

// Complete returns the model's reply to question under systemPrompt.
func (ce *ChatEngine) Complete(ctx context.Context, systemPrompt, question string) (string, error) {
	return ce.generate(ctx, systemPrompt, question)
}

// CompleteStream is Complete with every received chunk passed to onChunk.
// The full reply is still returned.
func (ce *ChatEngine) CompleteStream(ctx context.Context, systemPrompt, question string, onChunk func(chunk string) error) (string, error) {
	return ce.generate(ctx, systemPrompt, question, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		return onChunk(string(chunk))
	}))
}

func (ce *ChatEngine) generate(ctx context.Context, systemPrompt, question string, extra ...llms.CallOption) (string, error) {
	if ce.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ce.config.Timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, question),
	}

	opts := []llms.CallOption{
		llms.WithModel(ce.config.Model),
		llms.WithTemperature(*ce.config.Temperature),
	}
	if ce.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(ce.config.MaxTokens))
	}
	opts = append(opts, extra...)

	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", &CompletionError{Err: err}
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", &CompletionError{Err: ErrEmptyResponse}
	}

	return response.Choices[0].Content, nil
}
