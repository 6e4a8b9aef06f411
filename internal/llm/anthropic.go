package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tenkigen/tenkigen/internal/metrics"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropic(opts Options) (Client, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	model := opts.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(opts.timeout()),
		option.WithMaxRetries(3),
	)
	return &anthropicClient{client: client, model: model}, nil
}

func (c *anthropicClient) Name() string { return "anthropic" }

func (c *anthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("anthropic", "error").Inc()
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		metrics.LLMCalls.WithLabelValues("anthropic", "empty").Inc()
		return "", errors.New("anthropic returned no text blocks")
	}
	metrics.LLMCalls.WithLabelValues("anthropic", "ok").Inc()
	return sb.String(), nil
}
