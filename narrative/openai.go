package narrative

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI is a Narrator using the chat completions API. Structured answers use
// a strict JSON schema response format generated from the Go type.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ Narrator = (*OpenAI)(nil)

type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) OpenAIOption {
	return func(o *openAIOptions) { o.apiKey = key }
}

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) { o.baseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) OpenAIOption {
	return func(o *openAIOptions) { o.temperature = t }
}

// NewOpenAI creates an OpenAI narrator.
// If no key is given, it tries to read from OPENAI_API_KEY environment variable.
func NewOpenAI(opts ...OpenAIOption) (*OpenAI, error) {
	o := &openAIOptions{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  DefaultOpenAIModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	cfg := openai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       o.model,
		temperature: o.temperature,
	}, nil
}

func (c *OpenAI) complete(ctx context.Context, system, user string, format *openai.ChatCompletionResponseFormat) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate implements Narrator.
func (c *OpenAI) Generate(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, nil)
}

// GenerateJSON implements Narrator.
func (c *OpenAI) GenerateJSON(ctx context.Context, system, user, name string, out any) error {
	schema, err := schemaFor(out)
	if err != nil {
		return err
	}
	text, err := c.complete(ctx, system, user, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	})
	if err != nil {
		return err
	}
	if err := schema.Unmarshal(stripFences(text), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
