// Package generator produces natural-language descriptions of code chunks
// for embedding alongside the raw source text.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

// Common errors
var (
	ErrGenerationFailed = errors.New("description generation failed")
	ErrDisabled         = errors.New("description generation disabled")
)

const (
	// DefaultChatModel is used when no model is configured.
	DefaultChatModel = "gpt-4o-mini"

	maxChunkChars = 6000
)

// Describer generates human-readable descriptions of code.
type Describer interface {
	// Describe returns a short description of a single chunk.
	Describe(ctx context.Context, chunk *types.Chunk) (string, error)

	// Summarize returns a one-paragraph summary covering several chunks,
	// typically all chunks of one file.
	Summarize(ctx context.Context, chunks []*types.Chunk) (string, error)

	// Enabled reports whether this describer issues real generations.
	Enabled() bool
}

// OpenAIDescriber implements Describer using the OpenAI chat API.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

// NewOpenAIDescriber creates a chat-backed describer. A non-empty baseURL
// points the client at an OpenAI-compatible endpoint.
func NewOpenAIDescriber(apiKey, model, baseURL string) (*OpenAIDescriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrGenerationFailed)
	}
	if model == "" {
		model = DefaultChatModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIDescriber{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (d *OpenAIDescriber) Describe(ctx context.Context, chunk *types.Chunk) (string, error) {
	if chunk == nil || chunk.Content == "" {
		return "", fmt.Errorf("%w: empty chunk", ErrGenerationFailed)
	}

	subject := chunk.FilePath
	if chunk.SymbolName != "" {
		subject = chunk.SymbolName + " in " + chunk.FilePath
	}

	prompt := fmt.Sprintf(
		"Describe what %s does in one or two sentences. Mention inputs, outputs, and side effects. Code:\n\n%s",
		subject, truncate(chunk.Content, maxChunkChars))

	return d.complete(ctx, prompt)
}

func (d *OpenAIDescriber) Summarize(ctx context.Context, chunks []*types.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: no chunks", ErrGenerationFailed)
	}

	var b strings.Builder
	b.WriteString("Summarize the purpose of this file in one paragraph. Symbols:\n\n")
	budget := maxChunkChars
	for _, chunk := range chunks {
		part := truncate(chunk.Content, budget/len(chunks))
		if chunk.SymbolName != "" {
			b.WriteString("// " + chunk.SymbolName + "\n")
		}
		b.WriteString(part)
		b.WriteString("\n\n")
	}

	return d.complete(ctx, b.String())
}

func (d *OpenAIDescriber) Enabled() bool { return true }

func (d *OpenAIDescriber) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a code documentation assistant. Be terse and factual.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Disabled is a no-op describer used when description generation is off.
type Disabled struct{}

func (Disabled) Describe(ctx context.Context, chunk *types.Chunk) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Summarize(ctx context.Context, chunks []*types.Chunk) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Enabled() bool { return false }

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
