package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tenkigen/tenkigen/internal/metrics"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAIClient struct {
	client openai.Client
	model  string
}

func newOpenAI(opts Options) (Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(opts.timeout()),
		option.WithMaxRetries(3),
	)
	return &openAIClient{client: client, model: model}, nil
}

func (c *openAIClient) Name() string { return "openai" }

func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("openai", "error").Inc()
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMCalls.WithLabelValues("openai", "empty").Inc()
		return "", errors.New("openai returned no choices")
	}
	metrics.LLMCalls.WithLabelValues("openai", "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}
