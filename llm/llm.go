package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"applydiff/config"
)

// DefaultTimeout bounds one chat round-trip.
const DefaultTimeout = 120 * time.Second

// Client is a minimal OpenAI-compatible chat client used to send the
// session briefing plus a change request and get a patch document back.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a client from the loaded configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no api_key configured; set it with 'applydiff config set api_key <key>'")
	}

	client := openai.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = cfg.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	}

	return &Client{client: client, model: cfg.Model}, nil
}

// RequestPatch sends the briefing as the system prompt and the user's
// change request, returning the model's raw reply. The reply is expected to
// be a patch document; the caller feeds it to the engine unmodified.
func (c *Client) RequestPatch(ctx context.Context, briefing, request string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: briefing},
			{Role: openai.ChatMessageRoleUser, Content: request},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}
