// Package llm abstracts the LLM providers behind a single generate call and
// parses their free-form replies back into candidate indexes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Client is the single contract the pipeline needs from any LLM provider.
type Client interface {
	// Generate returns the model's text reply for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider for logging and metadata.
	Name() string
}

// Options configure provider construction.
type Options struct {
	// Model overrides the provider default when non-empty.
	Model string
	// Timeout bounds each generate call. Zero means 30s.
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

// New constructs a provider client by id: openai, gemini or anthropic.
// API keys come from the environment (OPENAI_API_KEY, GEMINI_API_KEY,
// ANTHROPIC_API_KEY).
func New(provider string, opts Options) (Client, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return newOpenAI(opts)
	case "gemini":
		return newGemini(opts)
	case "anthropic":
		return newAnthropic(opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// ErrNoIndex is returned when no in-range index can be parsed from a reply.
var ErrNoIndex = errors.New("no candidate index in response")

var (
	leadingDigits = regexp.MustCompile(`^\s*(\d+)`)
	labeledIndex  = regexp.MustCompile(`(?:答え|選択|answer|index)\s*[:：]\s*(\d+)`)
	anyDigits     = regexp.MustCompile(`\d+`)
)

// ParseIndex extracts a candidate index from an LLM reply. Strategies apply
// in order: full-string number, leading digits, labelled pattern
// ("答え: N" / "選択: N"), finally any in-range number. Out-of-range values
// from an earlier strategy fall through to the next.
func ParseIndex(response string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrNoIndex
	}
	trimmed := strings.TrimSpace(response)

	if v, err := strconv.Atoi(trimmed); err == nil && v >= 0 && v < n {
		return v, nil
	}
	if m := leadingDigits.FindStringSubmatch(trimmed); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v < n {
			return v, nil
		}
	}
	if m := labeledIndex.FindStringSubmatch(strings.ToLower(response)); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v < n {
			return v, nil
		}
	}
	for _, m := range anyDigits.FindAllString(response, -1) {
		if v, err := strconv.Atoi(m); err == nil && v < n {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNoIndex, truncate(response, 80))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
