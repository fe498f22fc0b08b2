package llm

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// openaiProvider serves OpenAI itself and any OpenAI-compatible vendor
// reached through a custom base URL.
type openaiProvider struct {
	name string
}

func (p *openaiProvider) Name() string {
	return p.name
}

func (p *openaiProvider) DefaultKeyEnv() string {
	return "OPENAI_API_KEY"
}

func (p *openaiProvider) Complete(ctx context.Context, req Request) (string, error) {
	cfg := openai.DefaultConfig(req.APIKey)
	if req.BaseURL != "" {
		cfg.BaseURL = req.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		// A literal 0 is dropped by the client's omitempty marshalling,
		// so the smallest positive value stands in for temperature 0.
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s api error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
