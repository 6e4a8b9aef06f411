package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tenkigen/tenkigen/internal/httputil"
	"github.com/tenkigen/tenkigen/internal/metrics"
)

const (
	defaultGeminiModel   = "gemini-1.5-flash"
	geminiEndpointFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

// geminiClient talks to the Generative Language REST API directly; there is
// no SDK dependency for this provider.
type geminiClient struct {
	apiKey string
	model  string
	client *http.Client
}

func newGemini(opts Options) (Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiClient{
		apiKey: apiKey,
		model:  model,
		client: httputil.NewClient(opts.timeout()),
	}, nil
}

func (c *geminiClient) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	u := fmt.Sprintf(geminiEndpointFormat, c.model)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("gemini generate: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("gemini generate: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 3 * time.Second
	bo.Multiplier = 2
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		metrics.LLMCalls.WithLabelValues("gemini", "error").Inc()
		return "", err
	}

	var data geminiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.LLMCalls.WithLabelValues("gemini", "error").Inc()
		return "", fmt.Errorf("unmarshal gemini response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range data.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		metrics.LLMCalls.WithLabelValues("gemini", "empty").Inc()
		return "", errors.New("gemini returned no candidates")
	}
	metrics.LLMCalls.WithLabelValues("gemini", "ok").Inc()
	return sb.String(), nil
}
