// Package narrative generates prose and structured JSON from prompts.
//
// Two backends are provided: LangChain wraps any langchaingo llms.Model and
// OpenAI talks to an OpenAI compatible chat completions endpoint. Both can be
// wrapped with WithRetry.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/smallnest/leadgraph/graph"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("no response")

// Narrator turns a system prompt and a user message into text.
type Narrator interface {
	// Generate returns free text.
	Generate(ctx context.Context, system, user string) (string, error)
	// GenerateJSON decodes a JSON answer into out, which must be a pointer to
	// a struct. name identifies the answer shape to backends that need one.
	GenerateJSON(ctx context.Context, system, user, name string, out any) error
}

// schemaFor returns the JSON schema describing out.
func schemaFor(out any) (*jsonschema.Definition, error) {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return schema, nil
}

// stripFences removes a markdown code fence wrapped around a JSON answer.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

type retrying struct {
	next   Narrator
	config *graph.RetryConfig
}

// WithRetry retries failed calls of n with exponential backoff. A nil config
// uses graph.DefaultRetryConfig.
func WithRetry(n Narrator, config *graph.RetryConfig) Narrator {
	return &retrying{next: n, config: config}
}

func (r *retrying) Generate(ctx context.Context, system, user string) (string, error) {
	return graph.Retry(ctx, r.config, func(ctx context.Context) (string, error) {
		return r.next.Generate(ctx, system, user)
	})
}

func (r *retrying) GenerateJSON(ctx context.Context, system, user, name string, out any) error {
	_, err := graph.Retry(ctx, r.config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.GenerateJSON(ctx, system, user, name, out)
	})
	return err
}
