package llm

import (
	"context"
	"maizedigest/app/config"
	"net/http"
	"strings"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
)

const (
	maxGenerateDuration = 2 * time.Minute
	maxCompletionTokens = 1500
)

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	clientConfig := openai.DefaultConfig(cfg.LLM.Token)
	clientConfig.BaseURL = cfg.LLM.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: maxGenerateDuration,
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.LLM.Model,
	}, nil
}

// Generate runs a single-turn completion and returns the model text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, maxGenerateDuration)
	defer cancel()

	aiResponse, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: maxCompletionTokens,
			Temperature:         0.7,
		},
	)
	if err != nil {
		return "", oops.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", oops.Errorf("no chat completion found")
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}
