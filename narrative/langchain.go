package narrative

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChain is a Narrator on top of a langchaingo model.
type LangChain struct {
	model   llms.Model
	options []llms.CallOption
}

var _ Narrator = (*LangChain)(nil)

// NewLangChain creates a narrator that calls model with the given options on
// every request.
func NewLangChain(model llms.Model, options ...llms.CallOption) *LangChain {
	return &LangChain{model: model, options: options}
}

func (l *LangChain) call(ctx context.Context, system, user string, extra ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	opts := append(append([]llms.CallOption{}, l.options...), extra...)
	resp, err := l.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

// Generate implements Narrator.
func (l *LangChain) Generate(ctx context.Context, system, user string) (string, error) {
	return l.call(ctx, system, user)
}

// GenerateJSON implements Narrator. The schema of out is appended to the
// system prompt and the model is asked for JSON output.
func (l *LangChain) GenerateJSON(ctx context.Context, system, user, name string, out any) error {
	schema, err := schemaFor(out)
	if err != nil {
		return err
	}
	data, err := schema.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	system = fmt.Sprintf("%s\n\nRespond only with a JSON object named %q matching this JSON schema:\n%s", system, name, data)
	text, err := l.call(ctx, system, user, llms.WithJSONMode())
	if err != nil {
		return err
	}
	if err := schema.Unmarshal(stripFences(text), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
