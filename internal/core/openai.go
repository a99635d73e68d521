package core

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient serves the "chatgpt" selection with the user's stored key.
type OpenAIClient struct {
	model string
}

func NewOpenAIClient() *OpenAIClient {
	return &OpenAIClient{model: openai.GPT3Dot5Turbo}
}

func (c *OpenAIClient) Name() string {
	return ProviderChatGPT
}

func (c *OpenAIClient) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	// The key comes from the per-request credential lookup, so the client
	// is constructed per call rather than held on the struct.
	client := openai.NewClient(apiKey)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
